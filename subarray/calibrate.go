package subarray

import "arraydb/trace"

// calibrateCurrentStartEnd adjusts a tentative flat range interval
// [start, end] so that it materializes as a proper subarray. It returns the
// calibrated end and whether a single slab must be split because it
// overflows the budget on its own.
//
// When start lies on a slab boundary, row-major and col-major layouts admit
// only whole slabs on the splitting dimension (dim 0 for row-major, dim D-1
// for col-major): the interval is shrunk to the largest number of complete
// slabs, or flagged mustSplitSlab with exactly one slab when not even one
// fits. Unordered admits partial runs of the fastest-varying dimension as
// well, so the interval is only snapped to stay materializable. When start
// lies mid-slab (after a single flat range was queued for splitting), every
// layout emits at most the rest of the current run of the fastest-varying
// dimension. Global order operates on a single flat range and needs no
// calibration; tile alignment happens during splitting.
func (p *Partitioner) calibrateCurrentStartEnd(start, end uint64) (uint64, bool) {
	layout := p.subarray.layout
	if layout == GlobalOrder {
		return end, false
	}

	slabSize := p.subarray.slabSize()
	runSize := p.subarray.innerRunSize()

	if start%slabSize == 0 {
		k := (end - start + 1) / slabSize
		if k >= 1 {
			calibrated := start + k*slabSize - 1
			p.tracer.Verbose(trace.ComponentCalibrate, "snapped to whole slabs",
				trace.Context("start", start, "end", calibrated, "slabs", k))
			return calibrated, false
		}
		if layout != Unordered {
			p.tracer.Verbose(trace.ComponentCalibrate, "single slab overflows",
				trace.Context("start", start, "slab_end", start+slabSize-1))
			return start + slabSize - 1, true
		}
	}

	// Partial emissions restart mid-slab; stay within the current run of the
	// fastest-varying dimension so the interval remains a cross product.
	runEnd := start - start%runSize + runSize - 1
	if end > runEnd {
		end = runEnd
	}
	p.tracer.Verbose(trace.ComponentCalibrate, "kept partial run",
		trace.Context("start", start, "end", end))
	return end, false
}
