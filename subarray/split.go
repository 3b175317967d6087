package subarray

import (
	"arraydb/array"
	"arraydb/trace"
)

// computeSplittingPointSingleRange picks the splitting dimension and point
// for a subarray with one range per dimension: the dimension with the
// largest number of splittable points wins, ties broken toward the lowest
// index. Global order delegates to tile-aligned splitting. unsplittable is
// true for a single cell, or when a real domain is exhausted.
func (p *Partitioner) computeSplittingPointSingleRange(sub *Subarray) (int, array.Datum, bool, error) {
	if p.subarray.layout == GlobalOrder {
		return p.computeSplittingPointOnTiles(sub)
	}
	ops := sub.ops()

	dim := -1
	var best float64
	for d := range sub.dims {
		r := sub.dims[d][0]
		if !r.Splittable(ops) {
			continue
		}
		span := ops.Measure(r.Lo, r.Hi)
		if dim == -1 || span > best {
			dim, best = d, span
		}
	}
	if dim == -1 {
		return 0, 0, true, nil
	}

	r := sub.dims[dim][0]
	point, ok := ops.SplitPoint(r.Lo, r.Hi)
	if !ok {
		return 0, 0, true, nil
	}
	p.tracer.Verbose(trace.ComponentSplit, "single range split",
		trace.Context("dim", dim, "point", ops.Format(point)))
	return dim, point, false, nil
}

// computeSplittingPointMultiRange picks the splitting dimension and point
// for a multi-range slab: the slab's splitting dimension, at the upper
// endpoint of the middle range of its sequence. A slab with a single range
// on the splitting dimension falls back to splitting that range at its
// midpoint; when that fails too the slab is unsplittable.
func (p *Partitioner) computeSplittingPointMultiRange(sub *Subarray) (int, array.Datum, bool, error) {
	sd := sub.splittingDim()
	ops := sub.ops()
	ranges := sub.dims[sd]

	if len(ranges) > 1 {
		mid := (len(ranges) - 1) / 2
		p.tracer.Verbose(trace.ComponentSplit, "slab split between ranges",
			trace.Context("dim", sd, "range_idx", mid))
		return sd, ranges[mid].Hi, false, nil
	}

	point, ok := ops.SplitPoint(ranges[0].Lo, ranges[0].Hi)
	if !ok {
		return 0, 0, true, nil
	}
	p.tracer.Verbose(trace.ComponentSplit, "slab split inside single range",
		trace.Context("dim", sd, "point", ops.Format(point)))
	return sd, point, false, nil
}

// computeSplittingPointOnTiles picks the splitting dimension and point for
// global order: the slowest-varying dimension of the storage tile order
// whose range spans more than one space tile, split on the tile boundary
// nearest the midpoint in tile-index space. A range inside a single space
// tile is unsplittable.
func (p *Partitioner) computeSplittingPointOnTiles(sub *Subarray) (int, array.Datum, bool, error) {
	schema := sub.schema
	ops := sub.ops()
	dimNum := schema.DimNum()

	for i := 0; i < dimNum; i++ {
		d := i
		if schema.TileOrder == array.TileColMajor {
			d = dimNum - 1 - i
		}
		dim := &schema.Dimensions[d]
		r := sub.dims[d][0]
		point, ok := ops.TileSplitPoint(r.Lo, r.Hi, dim.DomainLo, dim.TileExtent)
		if ok {
			p.tracer.Verbose(trace.ComponentSplit, "tile aligned split",
				trace.Context("dim", d, "point", ops.Format(point)))
			return d, point, false, nil
		}
	}
	return 0, 0, true, nil
}

// splitTopSingleRange splits the front of the single-range deque, pushing
// the halves back in order so the flattening order is preserved.
// unsplittable is true when the front cannot be split.
func (p *Partitioner) splitTopSingleRange() (bool, error) {
	front := p.state.singleRange[0]
	dim, point, unsplittable, err := p.computeSplittingPointSingleRange(front.sub)
	if err != nil || unsplittable {
		return unsplittable, err
	}
	left, right, err := front.sub.Split(dim, point)
	if err != nil {
		return false, err
	}
	p.state.singleRange = p.state.singleRange[1:]
	p.pushSingleFront(queued{sub: right, start: front.start, end: front.end})
	p.pushSingleFront(queued{sub: left, start: front.start, end: front.end})
	return false, nil
}

// splitTopMultiRange splits the front of the multi-range deque, pushing the
// halves back in order.
func (p *Partitioner) splitTopMultiRange() (bool, error) {
	front := p.state.multiRange[0]
	dim, point, unsplittable, err := p.computeSplittingPointMultiRange(front.sub)
	if err != nil || unsplittable {
		return unsplittable, err
	}
	left, right, err := front.sub.Split(dim, point)
	if err != nil {
		return false, err
	}
	p.state.multiRange = p.state.multiRange[1:]
	p.pushMultiFront(queued{sub: right, start: front.start, end: front.end})
	p.pushMultiFront(queued{sub: left, start: front.start, end: front.end})
	return false, nil
}
