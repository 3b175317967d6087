package subarray

import (
	"fmt"
	"strings"

	"arraydb/array"
)

// Layout is the traversal order of a subarray's ranges.
type Layout uint8

const (
	RowMajor Layout = iota
	ColMajor
	GlobalOrder
	Unordered
)

// String returns the string representation of Layout
func (l Layout) String() string {
	switch l {
	case RowMajor:
		return "row-major"
	case ColMajor:
		return "col-major"
	case GlobalOrder:
		return "global-order"
	case Unordered:
		return "unordered"
	default:
		return "unknown"
	}
}

// ResultSize is an estimated or budgeted result footprint in bytes.
type ResultSize struct {
	SizeFixed uint64
	SizeVar   uint64
}

// Estimator predicts the result footprint of a subarray for one attribute.
// Estimates are approximate; the only contract is monotonicity in
// expectation: shrinking the covered span must not grow the estimate.
type Estimator interface {
	EstimateResultSize(s *Subarray, attr string) (ResultSize, error)
}

// Subarray is a cross product of per-dimension 1D range lists plus a
// traversal layout. Dimensions with no explicit range default to the full
// domain until the first AddRange on that dimension.
type Subarray struct {
	schema   *array.Schema
	layout   Layout
	est      Estimator
	dims     [][]Range
	explicit []bool
}

// New creates a subarray over the schema's full domain.
func New(schema *array.Schema, layout Layout, est Estimator) (*Subarray, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	dimNum := schema.DimNum()
	s := &Subarray{
		schema:   schema,
		layout:   layout,
		est:      est,
		dims:     make([][]Range, dimNum),
		explicit: make([]bool, dimNum),
	}
	for d := 0; d < dimNum; d++ {
		dim := &schema.Dimensions[d]
		s.dims[d] = []Range{{Lo: dim.DomainLo, Hi: dim.DomainHi}}
	}
	return s, nil
}

// Schema returns the array schema.
func (s *Subarray) Schema() *array.Schema {
	return s.schema
}

// Layout returns the traversal layout.
func (s *Subarray) Layout() Layout {
	return s.layout
}

// Estimator returns the configured result size estimator.
func (s *Subarray) Estimator() Estimator {
	return s.est
}

// ops returns the domain operations for the shared dimension type.
func (s *Subarray) ops() array.DomainOps {
	return s.schema.DomainOps()
}

// AddRange appends a range on a dimension. The first explicit range replaces
// the implicit full-domain default.
func (s *Subarray) AddRange(dim int, r Range) error {
	if dim < 0 || dim >= len(s.dims) {
		return fmt.Errorf("%w: %d", ErrBadDimension, dim)
	}
	ops := s.ops()
	if ops.Less(r.Hi, r.Lo) {
		return fmt.Errorf("%w: dimension %d", ErrEmptyRange, dim)
	}
	d := &s.schema.Dimensions[dim]
	if ops.Less(r.Lo, d.DomainLo) || ops.Less(d.DomainHi, r.Hi) {
		return fmt.Errorf("%w: dimension %q", ErrOutOfDomain, d.Name)
	}
	if !s.explicit[dim] {
		s.dims[dim] = s.dims[dim][:0]
		s.explicit[dim] = true
	}
	s.dims[dim] = append(s.dims[dim], r)
	return nil
}

// Ranges returns the range list of a dimension.
func (s *Subarray) Ranges(dim int) []Range {
	return s.dims[dim]
}

// DimRangeNum returns the number of ranges on a dimension.
func (s *Subarray) DimRangeNum(dim int) uint64 {
	return uint64(len(s.dims[dim]))
}

// RangeNum returns the total number of ND ranges, i.e. the size of the
// flattened 1D range index space.
func (s *Subarray) RangeNum() uint64 {
	n := uint64(1)
	for d := range s.dims {
		n *= uint64(len(s.dims[d]))
	}
	return n
}

// rangeCoords maps a flat range index to per-dimension range indices using
// the layout's flattening. Row-major (last dimension fastest) also serves
// Unordered and GlobalOrder; col-major has the first dimension fastest.
func (s *Subarray) rangeCoords(flat uint64) []uint64 {
	dimNum := len(s.dims)
	coords := make([]uint64, dimNum)
	if s.layout == ColMajor {
		for d := 0; d < dimNum; d++ {
			n := uint64(len(s.dims[d]))
			coords[d] = flat % n
			flat /= n
		}
	} else {
		for d := dimNum - 1; d >= 0; d-- {
			n := uint64(len(s.dims[d]))
			coords[d] = flat % n
			flat /= n
		}
	}
	return coords
}

// dimOrder returns the dimensions from slowest- to fastest-varying under the
// layout's flattening.
func (s *Subarray) dimOrder() []int {
	dimNum := len(s.dims)
	order := make([]int, dimNum)
	for i := 0; i < dimNum; i++ {
		if s.layout == ColMajor {
			order[i] = dimNum - 1 - i
		} else {
			order[i] = i
		}
	}
	return order
}

// splittingDim returns the slab splitting dimension for structured layouts:
// the slowest-varying dimension (dim 0 for row-major, dim D-1 for
// col-major). For Unordered it is the dimension with the most ranges,
// ties broken toward the lowest index.
func (s *Subarray) splittingDim() int {
	switch s.layout {
	case ColMajor:
		return len(s.dims) - 1
	case Unordered:
		best := 0
		for d := 1; d < len(s.dims); d++ {
			if len(s.dims[d]) > len(s.dims[best]) {
				best = d
			}
		}
		return best
	default:
		return 0
	}
}

// slabSize returns the number of flat range indices in one slab: the product
// of the range counts of every dimension except the slowest-varying one.
func (s *Subarray) slabSize() uint64 {
	order := s.dimOrder()
	n := uint64(1)
	for _, d := range order[1:] {
		n *= uint64(len(s.dims[d]))
	}
	return n
}

// innerRunSize returns the number of flat range indices in one run of the
// fastest-varying dimension.
func (s *Subarray) innerRunSize() uint64 {
	order := s.dimOrder()
	return uint64(len(s.dims[order[len(order)-1]]))
}

// GetRange returns the single-ND-range subarray at a flat range index.
func (s *Subarray) GetRange(flat uint64) (*Subarray, error) {
	if flat >= s.RangeNum() {
		return nil, fmt.Errorf("%w: flat range index %d out of %d", ErrInternal, flat, s.RangeNum())
	}
	coords := s.rangeCoords(flat)
	out := s.shallow()
	for d := range s.dims {
		out.dims[d] = []Range{s.dims[d][coords[d]]}
	}
	return out, nil
}

// ExtractInterval materializes the contiguous flat range interval
// [start, end] as a subarray. The interval must form a proper cross product:
// a contiguous run on one dimension, with every faster dimension complete
// and every slower dimension pinned. Calibration guarantees this shape.
func (s *Subarray) ExtractInterval(start, end uint64) (*Subarray, error) {
	if end < start || end >= s.RangeNum() {
		return nil, fmt.Errorf("%w: interval [%d, %d]", ErrInternal, start, end)
	}
	sc := s.rangeCoords(start)
	ec := s.rangeCoords(end)
	order := s.dimOrder()

	// Find the slowest dimension where the endpoints diverge.
	varying := -1
	for i, d := range order {
		if sc[d] != ec[d] {
			varying = i
			break
		}
	}

	out := s.shallow()
	if varying == -1 {
		// Single ND range.
		for d := range s.dims {
			out.dims[d] = []Range{s.dims[d][sc[d]]}
		}
		return out, nil
	}

	for i, d := range order {
		switch {
		case i < varying:
			out.dims[d] = []Range{s.dims[d][sc[d]]}
		case i == varying:
			out.dims[d] = append([]Range(nil), s.dims[d][sc[d]:ec[d]+1]...)
		default:
			if sc[d] != 0 || ec[d] != uint64(len(s.dims[d]))-1 {
				return nil, fmt.Errorf("%w: interval [%d, %d]", ErrIntervalShape, start, end)
			}
			out.dims[d] = append([]Range(nil), s.dims[d]...)
		}
	}
	return out, nil
}

// Split produces two subarrays whose ranges on the splitting dimension are
// partitioned at the splitting point: ranges entirely at or below the point
// go left, entirely above go right, and a straddling range is itself split.
// All other dimensions carry over verbatim.
func (s *Subarray) Split(dim int, point array.Datum) (*Subarray, *Subarray, error) {
	if dim < 0 || dim >= len(s.dims) {
		return nil, nil, fmt.Errorf("%w: %d", ErrBadDimension, dim)
	}
	ops := s.ops()

	var left, right []Range
	for _, r := range s.dims[dim] {
		switch {
		case !ops.Less(point, r.Hi): // r.Hi <= point
			left = append(left, r)
		case ops.Less(point, r.Lo): // r.Lo > point
			right = append(right, r)
		default:
			l, rr := r.SplitAt(ops, point)
			left = append(left, l)
			right = append(right, rr)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return nil, nil, fmt.Errorf("%w: dimension %d at %s", ErrSplitPointOutside, dim, ops.Format(point))
	}

	mk := func(ranges []Range) *Subarray {
		out := s.shallow()
		for d := range s.dims {
			if d == dim {
				out.dims[d] = ranges
			} else {
				out.dims[d] = append([]Range(nil), s.dims[d]...)
			}
		}
		return out
	}
	return mk(left), mk(right), nil
}

// EstimateResultSize returns the estimated result footprint for an attribute.
func (s *Subarray) EstimateResultSize(attr string) (ResultSize, error) {
	if s.est == nil {
		return ResultSize{}, ErrNoEstimator
	}
	if _, ok := s.schema.Attr(attr); !ok {
		return ResultSize{}, fmt.Errorf("%w: %q", ErrUnknownAttribute, attr)
	}
	return s.est.EstimateResultSize(s, attr)
}

// UnaryAll reports whether every dimension holds a single unary range, i.e.
// the subarray is one cell.
func (s *Subarray) UnaryAll() bool {
	ops := s.ops()
	for d := range s.dims {
		if len(s.dims[d]) != 1 || !s.dims[d][0].Unary(ops) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy sharing the schema and estimator.
func (s *Subarray) Clone() *Subarray {
	out := s.shallow()
	for d := range s.dims {
		out.dims[d] = append([]Range(nil), s.dims[d]...)
	}
	copy(out.explicit, s.explicit)
	return out
}

// shallow copies everything but the range lists.
func (s *Subarray) shallow() *Subarray {
	return &Subarray{
		schema:   s.schema,
		layout:   s.layout,
		est:      s.est,
		dims:     make([][]Range, len(s.dims)),
		explicit: make([]bool, len(s.explicit)),
	}
}

// String formats the subarray's ranges for tracing.
func (s *Subarray) String() string {
	ops := s.ops()
	var b strings.Builder
	b.WriteByte('{')
	for d := range s.dims {
		if d > 0 {
			b.WriteString(" x ")
		}
		b.WriteByte('(')
		for i, r := range s.dims[d] {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(r.String(ops))
		}
		b.WriteByte(')')
	}
	b.WriteByte('}')
	return b.String()
}
