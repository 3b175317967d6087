package estimate

import (
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"arraydb/array"
	"arraydb/fragment"
	"arraydb/subarray"
	"arraydb/trace"
)

// DefaultCacheSize bounds the per-subarray estimate memoization.
const DefaultCacheSize = 4096

// Estimator predicts per-attribute result sizes for a subarray by
// overlapping its ranges with the space-tile grid and accumulating the
// fraction of each non-empty tile the subarray covers, scaled by the
// fragment's recorded tile footprints. The estimate is monotone: shrinking
// a dimension's covered span never grows it.
type Estimator struct {
	schema    *array.Schema
	fragments []*fragment.Meta
	cache     *lru.Cache[string, subarray.ResultSize]
	tracer    *trace.Tracer
}

// New creates an estimator over the fragments of one array.
func New(schema *array.Schema, fragments []*fragment.Meta, cacheSize int) (*Estimator, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, subarray.ResultSize](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating estimate cache: %w", err)
	}
	return &Estimator{
		schema:    schema,
		fragments: fragments,
		cache:     cache,
		tracer:    trace.GetTracer(),
	}, nil
}

// EstimateResultSize implements subarray.Estimator.
func (e *Estimator) EstimateResultSize(s *subarray.Subarray, attr string) (subarray.ResultSize, error) {
	if _, ok := e.schema.Attr(attr); !ok {
		return subarray.ResultSize{}, fmt.Errorf("%w: %q", subarray.ErrUnknownAttribute, attr)
	}

	key := attr + "|" + s.String()
	if est, ok := e.cache.Get(key); ok {
		return est, nil
	}

	var fixed, varSize float64
	dimNum := e.schema.DimNum()
	ranges := make([]subarray.Range, dimNum)
	idx := make([]int, dimNum)
	for {
		for d := 0; d < dimNum; d++ {
			ranges[d] = s.Ranges(d)[idx[d]]
		}
		f, v := e.estimateNDRange(ranges, attr)
		fixed += f
		varSize += v

		// Advance the odometer over the per-dimension range lists.
		d := dimNum - 1
		for d >= 0 {
			idx[d]++
			if idx[d] < len(s.Ranges(d)) {
				break
			}
			idx[d] = 0
			d--
		}
		if d < 0 {
			break
		}
	}

	est := subarray.ResultSize{
		SizeFixed: uint64(math.Ceil(fixed)),
		SizeVar:   uint64(math.Ceil(varSize)),
	}
	e.cache.Add(key, est)
	e.tracer.Verbose(trace.ComponentEstimate, "estimated result size",
		trace.Context("attr", attr, "fixed", est.SizeFixed, "var", est.SizeVar))
	return est, nil
}

// estimateNDRange accumulates the covered fraction of every non-empty tile
// overlapping one ND range.
func (e *Estimator) estimateNDRange(ranges []subarray.Range, attr string) (float64, float64) {
	ops := e.schema.DomainOps()
	dimNum := e.schema.DimNum()

	lo := make([]uint64, dimNum)
	hi := make([]uint64, dimNum)
	for d := 0; d < dimNum; d++ {
		dim := &e.schema.Dimensions[d]
		lo[d] = ops.TileIdx(ranges[d].Lo, dim.DomainLo, dim.TileExtent)
		hi[d] = ops.TileIdx(ranges[d].Hi, dim.DomainLo, dim.TileExtent)
	}

	var fixed, varSize float64
	coords := append([]uint64(nil), lo...)
	for {
		linear := e.schema.LinearTileIdx(coords)
		coverage := 1.0
		for d := 0; d < dimNum; d++ {
			coverage *= e.overlapFraction(ops, d, ranges[d], coords[d])
		}
		if coverage > 0 {
			for _, frag := range e.fragments {
				bm := frag.NonEmpty(attr)
				if bm == nil || !bm.Contains(linear) {
					continue
				}
				if size, ok := frag.TileSizeOf(attr, linear); ok {
					fixed += coverage * float64(size.BytesFixed)
					varSize += coverage * float64(size.BytesVar)
				}
			}
		}

		d := dimNum - 1
		for d >= 0 {
			coords[d]++
			if coords[d] <= hi[d] {
				break
			}
			coords[d] = lo[d]
			d--
		}
		if d < 0 {
			break
		}
	}
	return fixed, varSize
}

// overlapFraction returns the fraction of a space tile covered by the range
// on one dimension.
func (e *Estimator) overlapFraction(ops array.DomainOps, d int, r subarray.Range, tile uint64) float64 {
	dim := &e.schema.Dimensions[d]
	tileLo := ops.TileLower(dim.DomainLo, dim.TileExtent, tile)
	tileHi := ops.TileUpper(dim.DomainLo, dim.TileExtent, tile)

	interLo := r.Lo
	if ops.Less(interLo, tileLo) {
		interLo = tileLo
	}
	interHi := r.Hi
	if ops.Less(tileHi, interHi) {
		interHi = tileHi
	}
	if ops.Less(interHi, interLo) {
		return 0
	}

	tileMeasure := ops.Measure(tileLo, tileHi)
	if tileMeasure <= 0 {
		return 0
	}
	return ops.Measure(interLo, interHi) / tileMeasure
}
