package subarray

import (
	"fmt"

	"arraydb/array"
)

// Range is a closed interval [Lo, Hi] over one dimension's domain. A Range is
// never empty; constructors and split operations preserve Lo <= Hi.
type Range struct {
	Lo array.Datum
	Hi array.Datum
}

// NewRange builds a range after checking Lo <= Hi under the dimension type.
func NewRange(dt array.DataType, lo, hi array.Datum) (Range, error) {
	ops, err := array.Ops(dt)
	if err != nil {
		return Range{}, err
	}
	if ops.Less(hi, lo) {
		return Range{}, fmt.Errorf("%w: [%s, %s]", ErrEmptyRange, ops.Format(lo), ops.Format(hi))
	}
	return Range{Lo: lo, Hi: hi}, nil
}

// Unary reports whether the range holds a single coordinate.
func (r Range) Unary(ops array.DomainOps) bool {
	return ops.Eq(r.Lo, r.Hi)
}

// Contains reports whether v lies within the range.
func (r Range) Contains(ops array.DomainOps, v array.Datum) bool {
	return !ops.Less(v, r.Lo) && !ops.Less(r.Hi, v)
}

// Equal reports whether two ranges hold the same bounds.
func (r Range) Equal(other Range) bool {
	return r.Lo == other.Lo && r.Hi == other.Hi
}

// Splittable reports whether the range can be split into two non-empty
// closed ranges.
func (r Range) Splittable(ops array.DomainOps) bool {
	return ops.Splittable(r.Lo, r.Hi)
}

// SplitAt splits the range at p into [Lo, p] and [Succ(p), Hi]. p must lie in
// [Lo, Hi) for both halves to be non-empty.
func (r Range) SplitAt(ops array.DomainOps, p array.Datum) (Range, Range) {
	return Range{Lo: r.Lo, Hi: p}, Range{Lo: ops.Succ(p), Hi: r.Hi}
}

// String formats the range for tracing.
func (r Range) String(ops array.DomainOps) string {
	return fmt.Sprintf("[%s, %s]", ops.Format(r.Lo), ops.Format(r.Hi))
}
