package subarray

import (
	"fmt"

	"arraydb/trace"
)

// PartitionInfo describes the current partition and the interval of flat
// range indices from the original subarray it was constructed from. The
// interval supports further splitting when the read path finds that the
// actual results overflowed the estimate.
type PartitionInfo struct {
	Partition *Subarray
	Start     uint64
	End       uint64
	// SplitMultiRange is true when the partition came from splitting a
	// multi-range slab held in the multi-range queue.
	SplitMultiRange bool
}

// queued is a pending subarray along with the flat interval it came from.
type queued struct {
	sub        *Subarray
	start, end uint64
}

// partitionerState drives the derivation of the next partition: the
// remaining flat range interval of the original subarray, plus the deques of
// single-range and multi-range subarrays produced by splitting.
type partitionerState struct {
	start       uint64
	end         uint64
	singleRange []queued
	multiRange  []queued
}

// Partitioner iterates over partitions of a subarray such that the results
// of a read on each partition approximately fit the configured per-attribute
// budgets. Each partition is itself a Subarray. The partitioner is
// single-threaded; callers sharing one across goroutines must serialize
// access externally.
type Partitioner struct {
	subarray *Subarray
	budgets  *budgetStore
	current  PartitionInfo
	state    partitionerState
	estCache map[string]map[uint64]ResultSize
	tracer   *trace.Tracer
}

// NewPartitioner creates a partitioner over a deep copy of the subarray.
func NewPartitioner(s *Subarray) (*Partitioner, error) {
	if s.est == nil {
		return nil, ErrNoEstimator
	}
	if s.layout == GlobalOrder && s.RangeNum() != 1 {
		return nil, ErrGlobalOrderRanges
	}
	p := &Partitioner{
		subarray: s.Clone(),
		budgets:  newBudgetStore(s.schema),
		estCache: make(map[string]map[uint64]ResultSize),
		tracer:   trace.GetTracer(),
	}
	p.state.start = 0
	p.state.end = p.subarray.RangeNum() - 1
	return p, nil
}

// Subarray returns the partitioner's copy of the original subarray.
func (p *Partitioner) Subarray() *Subarray {
	return p.subarray
}

// Current returns the last emitted partition. Valid only when a partition
// has been emitted and the partitioner is not done.
func (p *Partitioner) Current() *Subarray {
	return p.current.Partition
}

// CurrentPartitionInfo returns the current partition info. The reference is
// valid until the next mutating call.
func (p *Partitioner) CurrentPartitionInfo() *PartitionInfo {
	return &p.current
}

// Done reports whether all partitions have been produced.
func (p *Partitioner) Done() bool {
	return p.state.start > p.state.end &&
		len(p.state.singleRange) == 0 &&
		len(p.state.multiRange) == 0
}

// SetResultBudget sets the result byte budget of a fixed-sized attribute.
func (p *Partitioner) SetResultBudget(attr string, budget uint64) error {
	return p.budgets.setFixed(attr, budget)
}

// SetResultBudgetVar sets the offset and value byte budgets of a var-sized
// attribute.
func (p *Partitioner) SetResultBudgetVar(attr string, budgetOff, budgetVal uint64) error {
	return p.budgets.setVar(attr, budgetOff, budgetVal)
}

// GetResultBudget returns the budget of a fixed-sized attribute.
func (p *Partitioner) GetResultBudget(attr string) (uint64, error) {
	return p.budgets.getFixed(attr)
}

// GetResultBudgetVar returns the offset and value budgets of a var-sized
// attribute.
func (p *Partitioner) GetResultBudgetVar(attr string) (uint64, uint64, error) {
	return p.budgets.getVar(attr)
}

// ResultBudgets returns a copy of all budgets that have been set.
func (p *Partitioner) ResultBudgets() map[string]ResultBudget {
	out := make(map[string]ResultBudget, len(p.budgets.budgets))
	for k, v := range p.budgets.budgets {
		out[k] = v
	}
	return out
}

// SetMemoryBudget sets the memory ceilings for fixed-sized data (and
// var-sized offsets) and for var-sized values.
func (p *Partitioner) SetMemoryBudget(budget, budgetVar uint64) {
	p.budgets.memoryBudget = budget
	p.budgets.memoryBudgetVar = budgetVar
}

// GetMemoryBudget returns the memory ceilings.
func (p *Partitioner) GetMemoryBudget() (uint64, uint64) {
	return p.budgets.memoryBudget, p.budgets.memoryBudgetVar
}

// Next advances to the next partition. unsplittable is true when the emitted
// partition overflows the budget but cannot be split further; the partition
// is still emitted and callers must check the flag on every call. When the
// partitioner is done, Next is a no-op.
func (p *Partitioner) Next() (unsplittable bool, err error) {
	if p.Done() {
		return false, nil
	}
	if len(p.state.singleRange) > 0 {
		return p.nextFromSingleRange()
	}
	if len(p.state.multiRange) > 0 {
		return p.nextFromMultiRange()
	}

	start := p.state.start
	end, found, err := p.computeCurrentEnd()
	if err != nil {
		return false, err
	}
	if !found {
		// Even the single flat range at start overflows: queue it for
		// splitting.
		sub, err := p.subarray.GetRange(start)
		if err != nil {
			return false, err
		}
		p.tracer.Debug(trace.ComponentPartition, "single range overflows budget",
			trace.Context("flat_idx", start, "range", sub.String()))
		p.pushSingleFront(queued{sub: sub, start: start, end: start})
		p.state.start = start + 1
		return p.nextFromSingleRange()
	}

	end, mustSplitSlab := p.calibrateCurrentStartEnd(start, end)
	if mustSplitSlab {
		slab, err := p.subarray.ExtractInterval(start, end)
		if err != nil {
			return false, err
		}
		p.tracer.Debug(trace.ComponentPartition, "slab overflows budget",
			trace.Context("start", start, "end", end))
		p.pushMultiFront(queued{sub: slab, start: start, end: end})
		p.state.start = end + 1
		return p.nextFromMultiRange()
	}

	part, err := p.subarray.ExtractInterval(start, end)
	if err != nil {
		return false, err
	}
	p.current = PartitionInfo{Partition: part, Start: start, End: end}
	p.state.start = end + 1
	p.tracer.Debug(trace.ComponentPartition, "emitted interval partition",
		trace.Context("start", start, "end", end, "partition", part.String()))
	return false, nil
}

// nextFromSingleRange produces the next partition from the single-range
// deque, splitting the front until it fits or proves unsplittable.
func (p *Partitioner) nextFromSingleRange() (bool, error) {
	unsplittable := false
	for {
		front := p.state.singleRange[0]
		ms, err := p.mustSplit(front.sub)
		if err != nil {
			return false, err
		}
		if !ms {
			break
		}
		u, err := p.splitTopSingleRange()
		if err != nil {
			return false, err
		}
		if u {
			unsplittable = true
			break
		}
	}
	front := p.state.singleRange[0]
	p.state.singleRange = p.state.singleRange[1:]
	p.current = PartitionInfo{Partition: front.sub, Start: front.start, End: front.end}
	if unsplittable {
		p.tracer.Warn(trace.ComponentPartition, "emitting unsplittable partition",
			trace.Context("partition", front.sub.String()))
	}
	return unsplittable, nil
}

// nextFromMultiRange produces the next partition from the multi-range deque.
func (p *Partitioner) nextFromMultiRange() (bool, error) {
	unsplittable := false
	for {
		front := p.state.multiRange[0]
		ms, err := p.mustSplit(front.sub)
		if err != nil {
			return false, err
		}
		if !ms {
			break
		}
		u, err := p.splitTopMultiRange()
		if err != nil {
			return false, err
		}
		if u {
			unsplittable = true
			break
		}
	}
	front := p.state.multiRange[0]
	p.state.multiRange = p.state.multiRange[1:]
	p.current = PartitionInfo{
		Partition:       front.sub,
		Start:           front.start,
		End:             front.end,
		SplitMultiRange: true,
	}
	if unsplittable {
		p.tracer.Warn(trace.ComponentPartition, "emitting unsplittable slab partition",
			trace.Context("partition", front.sub.String()))
	}
	return unsplittable, nil
}

// SplitCurrent re-splits the current partition. It is called by the reader
// when the emitted partition was estimated to fit the budget but the actual
// results did not. Both halves go back on the appropriate deque and the new
// front becomes current. When no half can be produced, unsplittable is true
// and the state is unchanged.
func (p *Partitioner) SplitCurrent() (unsplittable bool, err error) {
	if p.Done() || p.current.Partition == nil {
		return true, nil
	}
	cur := p.current

	if cur.SplitMultiRange || cur.Partition.RangeNum() > 1 {
		dim, point, unsplittable, err := p.computeSplittingPointMultiRange(cur.Partition)
		if err != nil || unsplittable {
			return unsplittable, err
		}
		left, right, err := cur.Partition.Split(dim, point)
		if err != nil {
			return false, err
		}
		p.pushMultiFront(queued{sub: right, start: cur.Start, end: cur.End})
		p.pushMultiFront(queued{sub: left, start: cur.Start, end: cur.End})
		front := p.state.multiRange[0]
		p.state.multiRange = p.state.multiRange[1:]
		p.current = PartitionInfo{Partition: front.sub, Start: front.start, End: front.end, SplitMultiRange: true}
		return false, nil
	}

	dim, point, unsplittable, err := p.computeSplittingPointSingleRange(cur.Partition)
	if err != nil || unsplittable {
		return unsplittable, err
	}
	left, right, err := cur.Partition.Split(dim, point)
	if err != nil {
		return false, err
	}
	p.pushSingleFront(queued{sub: right, start: cur.Start, end: cur.End})
	p.pushSingleFront(queued{sub: left, start: cur.Start, end: cur.End})
	front := p.state.singleRange[0]
	p.state.singleRange = p.state.singleRange[1:]
	p.current = PartitionInfo{Partition: front.sub, Start: front.start, End: front.end}
	return false, nil
}

// Clone returns an independent deep copy of the partitioner.
func (p *Partitioner) Clone() *Partitioner {
	out := &Partitioner{
		subarray: p.subarray.Clone(),
		budgets:  p.budgets.clone(),
		state: partitionerState{
			start:       p.state.start,
			end:         p.state.end,
			singleRange: cloneQueue(p.state.singleRange),
			multiRange:  cloneQueue(p.state.multiRange),
		},
		estCache: make(map[string]map[uint64]ResultSize, len(p.estCache)),
		tracer:   p.tracer,
	}
	for attr, m := range p.estCache {
		mm := make(map[uint64]ResultSize, len(m))
		for k, v := range m {
			mm[k] = v
		}
		out.estCache[attr] = mm
	}
	if p.current.Partition != nil {
		out.current = PartitionInfo{
			Partition:       p.current.Partition.Clone(),
			Start:           p.current.Start,
			End:             p.current.End,
			SplitMultiRange: p.current.SplitMultiRange,
		}
	}
	return out
}

// Swap exchanges all fields of two partitioners in one step.
func (p *Partitioner) Swap(other *Partitioner) {
	*p, *other = *other, *p
}

func cloneQueue(q []queued) []queued {
	out := make([]queued, len(q))
	for i, e := range q {
		out[i] = queued{sub: e.sub.Clone(), start: e.start, end: e.end}
	}
	return out
}

func (p *Partitioner) pushSingleFront(e queued) {
	p.state.singleRange = append([]queued{e}, p.state.singleRange...)
}

func (p *Partitioner) pushMultiFront(e queued) {
	p.state.multiRange = append([]queued{e}, p.state.multiRange...)
}

// estimateIndex returns the memoized estimate for the single flat range at
// the given index.
func (p *Partitioner) estimateIndex(flat uint64, attr string) (ResultSize, error) {
	m, ok := p.estCache[attr]
	if !ok {
		m = make(map[uint64]ResultSize)
		p.estCache[attr] = m
	}
	if est, ok := m[flat]; ok {
		return est, nil
	}
	sub, err := p.subarray.GetRange(flat)
	if err != nil {
		return ResultSize{}, err
	}
	est, err := sub.EstimateResultSize(attr)
	if err != nil {
		return ResultSize{}, fmt.Errorf("estimating %q: %w", attr, err)
	}
	m[flat] = est
	return est, nil
}

// mustSplit reports whether a partition's estimated result size exceeds any
// per-attribute budget or the memory ceilings.
func (p *Partitioner) mustSplit(sub *Subarray) (bool, error) {
	var totalFixed, totalVar uint64
	for _, name := range p.budgets.attrNames() {
		est, err := sub.EstimateResultSize(name)
		if err != nil {
			return false, fmt.Errorf("estimating %q: %w", name, err)
		}
		budget := p.budgets.budgets[name]
		if est.SizeFixed > budget.SizeFixed || est.SizeVar > budget.SizeVar {
			return true, nil
		}
		totalFixed += est.SizeFixed
		totalVar += est.SizeVar
	}
	return totalFixed > p.budgets.memoryBudget || totalVar > p.budgets.memoryBudgetVar, nil
}

// computeCurrentEnd finds the largest end in [state.start, state.end] such
// that the cumulative estimates over the flat interval fit every attribute
// budget and the memory ceilings. found is false when even the single flat
// range at start overflows.
func (p *Partitioner) computeCurrentEnd() (end uint64, found bool, err error) {
	start := p.state.start
	names := p.budgets.attrNames()
	sums := make([]ResultSize, len(names))
	var totalFixed, totalVar uint64

	end = start
	for i := start; i <= p.state.end; i++ {
		next := make([]ResultSize, len(names))
		tf, tv := totalFixed, totalVar
		fits := true
		for j, name := range names {
			est, err := p.estimateIndex(i, name)
			if err != nil {
				return 0, false, err
			}
			next[j] = ResultSize{
				SizeFixed: sums[j].SizeFixed + est.SizeFixed,
				SizeVar:   sums[j].SizeVar + est.SizeVar,
			}
			budget := p.budgets.budgets[name]
			if next[j].SizeFixed > budget.SizeFixed || next[j].SizeVar > budget.SizeVar {
				fits = false
			}
			tf += est.SizeFixed
			tv += est.SizeVar
		}
		if tf > p.budgets.memoryBudget || tv > p.budgets.memoryBudgetVar {
			fits = false
		}
		if !fits {
			break
		}
		sums, totalFixed, totalVar = next, tf, tv
		end = i
		found = true
	}
	return end, found, nil
}
