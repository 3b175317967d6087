package vfs

import (
	"fmt"
	"sort"
	"sync"

	"arraydb/trace"
)

// Region is one read destination: nbytes is len(Dest).
type Region struct {
	Offset int64
	Dest   []byte
}

// batchedRead is a set of regions coalesced into one contiguous read.
type batchedRead struct {
	offset  int64
	nbytes  uint64
	regions []Region
}

// computeReadBatches coalesces sorted regions into batches: a region joins
// the current batch while the grown batch stays within minBatchSize, or the
// gap to the batch end is within minBatchGap.
func computeReadBatches(regions []Region, minBatchSize, minBatchGap uint64) []batchedRead {
	if len(regions) == 0 {
		return nil
	}
	sorted := append([]Region(nil), regions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Offset < sorted[j].Offset
	})

	batches := make([]batchedRead, 0, len(sorted))
	curr := batchedRead{
		offset:  sorted[0].Offset,
		nbytes:  uint64(len(sorted[0].Dest)),
		regions: []Region{sorted[0]},
	}
	for _, region := range sorted[1:] {
		regionEnd := region.Offset + int64(len(region.Dest))
		newSize := uint64(regionEnd - curr.offset)
		gap := uint64(region.Offset - (curr.offset + int64(curr.nbytes)))
		if region.Offset < curr.offset+int64(curr.nbytes) {
			gap = 0
		}
		if newSize <= minBatchSize || gap <= minBatchGap {
			if newSize > curr.nbytes {
				curr.nbytes = newSize
			}
			curr.regions = append(curr.regions, region)
		} else {
			batches = append(batches, curr)
			curr = batchedRead{
				offset:  region.Offset,
				nbytes:  uint64(len(region.Dest)),
				regions: []Region{region},
			}
		}
	}
	return append(batches, curr)
}

// ReadAll reads every region of one object, coalescing adjacent regions
// into batches and issuing each batch on the shared worker pool, then
// scatter-copies the batch buffers into the region destinations.
func (v *VFS) ReadAll(uri string, regions []Region) error {
	batches := computeReadBatches(regions, v.minBatchSize, v.minBatchGap)
	v.tracer.Debug(trace.ComponentVFS, "batched read",
		trace.Context("uri", uri, "regions", len(regions), "batches", len(batches)))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, batch := range batches {
		batch := batch
		wg.Add(1)
		task := func() {
			defer wg.Done()
			buf := make([]byte, batch.nbytes)
			if err := v.Read(uri, batch.offset, buf); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("reading batch at %d: %w", batch.offset, err)
				}
				mu.Unlock()
				return
			}
			for _, region := range batch.regions {
				start := region.Offset - batch.offset
				copy(region.Dest, buf[start:start+int64(len(region.Dest))])
			}
		}
		if err := v.pool.Submit(task); err != nil {
			// Pool rejected the task; run it on the caller.
			task()
		}
	}
	wg.Wait()
	return firstErr
}
