package subarray

import (
	"math"
	"testing"

	"arraydb/array"
)

// measureEstimator scales the covered measure (cell count on integer
// domains, length on real domains) by a fixed byte factor. It satisfies the
// monotonicity contract exactly.
type measureEstimator struct {
	bytesPerCell uint64
	varPerCell   uint64
	err          error
}

func (e *measureEstimator) EstimateResultSize(s *Subarray, attr string) (ResultSize, error) {
	if e.err != nil {
		return ResultSize{}, e.err
	}
	ops := s.ops()
	total := 1.0
	for d := range s.dims {
		span := 0.0
		for _, r := range s.dims[d] {
			span += ops.Measure(r.Lo, r.Hi)
		}
		total *= span
	}
	return ResultSize{
		SizeFixed: uint64(math.Ceil(total * float64(e.bytesPerCell))),
		SizeVar:   uint64(math.Ceil(total * float64(e.varPerCell))),
	}, nil
}

func int2DSchema() *array.Schema {
	return &array.Schema{
		Name: "grid",
		Dimensions: []array.Dimension{
			{Name: "rows", Type: array.TypeInt32, DomainLo: array.Int64Datum(1), DomainHi: array.Int64Datum(100), TileExtent: array.Int64Datum(10)},
			{Name: "cols", Type: array.TypeInt32, DomainLo: array.Int64Datum(1), DomainHi: array.Int64Datum(100), TileExtent: array.Int64Datum(10)},
		},
		Attributes: []array.Attribute{
			{Name: "val", Type: array.TypeInt32},
			{Name: "tags", Type: array.TypeString},
		},
	}
}

func intRange(t *testing.T, lo, hi int64) Range {
	t.Helper()
	r, err := NewRange(array.TypeInt32, array.Int64Datum(lo), array.Int64Datum(hi))
	if err != nil {
		t.Fatalf("NewRange(%d, %d) failed: %v", lo, hi, err)
	}
	return r
}

func TestSubarrayDefaultsToFullDomain(t *testing.T) {
	s, err := New(int2DSchema(), RowMajor, &measureEstimator{bytesPerCell: 4})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if s.RangeNum() != 1 {
		t.Fatalf("RangeNum = %d, expected 1", s.RangeNum())
	}
	r := s.Ranges(0)[0]
	if r.Lo.Int64() != 1 || r.Hi.Int64() != 100 {
		t.Errorf("default range = [%d, %d], expected [1, 100]", r.Lo.Int64(), r.Hi.Int64())
	}
}

func TestAddRangeValidation(t *testing.T) {
	s, err := New(int2DSchema(), RowMajor, &measureEstimator{bytesPerCell: 4})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := s.AddRange(0, Range{Lo: array.Int64Datum(10), Hi: array.Int64Datum(5)}); err == nil {
		t.Error("expected empty range to be rejected")
	}
	if err := s.AddRange(0, Range{Lo: array.Int64Datum(0), Hi: array.Int64Datum(5)}); err == nil {
		t.Error("expected out-of-domain range to be rejected")
	}
	if err := s.AddRange(5, intRange(t, 1, 2)); err == nil {
		t.Error("expected bad dimension index to be rejected")
	}

	// First explicit range replaces the full-domain default.
	if err := s.AddRange(0, intRange(t, 1, 10)); err != nil {
		t.Fatalf("AddRange failed: %v", err)
	}
	if err := s.AddRange(0, intRange(t, 20, 30)); err != nil {
		t.Fatalf("AddRange failed: %v", err)
	}
	if s.DimRangeNum(0) != 2 {
		t.Errorf("DimRangeNum(0) = %d, expected 2", s.DimRangeNum(0))
	}
	if s.RangeNum() != 2 {
		t.Errorf("RangeNum = %d, expected 2", s.RangeNum())
	}
}

func TestFlattening(t *testing.T) {
	build := func(layout Layout) *Subarray {
		s, err := New(int2DSchema(), layout, &measureEstimator{bytesPerCell: 4})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		for _, r := range []Range{intRange(t, 1, 10), intRange(t, 11, 20), intRange(t, 21, 30)} {
			if err := s.AddRange(0, r); err != nil {
				t.Fatalf("AddRange failed: %v", err)
			}
		}
		for _, r := range []Range{intRange(t, 1, 5), intRange(t, 6, 10)} {
			if err := s.AddRange(1, r); err != nil {
				t.Fatalf("AddRange failed: %v", err)
			}
		}
		return s
	}

	t.Run("RowMajorLastDimFastest", func(t *testing.T) {
		s := build(RowMajor)
		// Flat order: (0,0) (0,1) (1,0) (1,1) (2,0) (2,1)
		sub, err := s.GetRange(3)
		if err != nil {
			t.Fatalf("GetRange failed: %v", err)
		}
		if got := sub.Ranges(0)[0]; got.Lo.Int64() != 11 {
			t.Errorf("flat 3 dim0 lo = %d, expected 11", got.Lo.Int64())
		}
		if got := sub.Ranges(1)[0]; got.Lo.Int64() != 6 {
			t.Errorf("flat 3 dim1 lo = %d, expected 6", got.Lo.Int64())
		}
	})

	t.Run("ColMajorFirstDimFastest", func(t *testing.T) {
		s := build(ColMajor)
		// Flat order: (0,0) (1,0) (2,0) (0,1) (1,1) (2,1)
		sub, err := s.GetRange(3)
		if err != nil {
			t.Fatalf("GetRange failed: %v", err)
		}
		if got := sub.Ranges(0)[0]; got.Lo.Int64() != 1 {
			t.Errorf("flat 3 dim0 lo = %d, expected 1", got.Lo.Int64())
		}
		if got := sub.Ranges(1)[0]; got.Lo.Int64() != 6 {
			t.Errorf("flat 3 dim1 lo = %d, expected 6", got.Lo.Int64())
		}
	})
}

func TestExtractInterval(t *testing.T) {
	s, err := New(int2DSchema(), RowMajor, &measureEstimator{bytesPerCell: 4})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for _, r := range []Range{intRange(t, 1, 10), intRange(t, 11, 20), intRange(t, 21, 30)} {
		if err := s.AddRange(0, r); err != nil {
			t.Fatalf("AddRange failed: %v", err)
		}
	}
	for _, r := range []Range{intRange(t, 1, 5), intRange(t, 6, 10)} {
		if err := s.AddRange(1, r); err != nil {
			t.Fatalf("AddRange failed: %v", err)
		}
	}

	t.Run("WholeSlabs", func(t *testing.T) {
		// Flat [0, 3] = dim0 ranges 0..1, full dim1.
		sub, err := s.ExtractInterval(0, 3)
		if err != nil {
			t.Fatalf("ExtractInterval failed: %v", err)
		}
		if sub.DimRangeNum(0) != 2 || sub.DimRangeNum(1) != 2 {
			t.Errorf("slab shape = %dx%d ranges, expected 2x2", sub.DimRangeNum(0), sub.DimRangeNum(1))
		}
	})

	t.Run("PartialRun", func(t *testing.T) {
		// Flat [2, 3] = dim0 range 1, full dim1.
		sub, err := s.ExtractInterval(2, 3)
		if err != nil {
			t.Fatalf("ExtractInterval failed: %v", err)
		}
		if sub.DimRangeNum(0) != 1 || sub.DimRangeNum(1) != 2 {
			t.Errorf("run shape = %dx%d ranges, expected 1x2", sub.DimRangeNum(0), sub.DimRangeNum(1))
		}
		if sub.Ranges(0)[0].Lo.Int64() != 11 {
			t.Errorf("run dim0 lo = %d, expected 11", sub.Ranges(0)[0].Lo.Int64())
		}
	})

	t.Run("SingleRange", func(t *testing.T) {
		sub, err := s.ExtractInterval(5, 5)
		if err != nil {
			t.Fatalf("ExtractInterval failed: %v", err)
		}
		if sub.RangeNum() != 1 {
			t.Errorf("RangeNum = %d, expected 1", sub.RangeNum())
		}
	})

	t.Run("UnmaterializableShape", func(t *testing.T) {
		// Flat [1, 2] straddles a row boundary without covering either row.
		if _, err := s.ExtractInterval(1, 2); err == nil {
			t.Error("expected interval shape error")
		}
	})
}

func TestSubarraySplit(t *testing.T) {
	s, err := New(int2DSchema(), RowMajor, &measureEstimator{bytesPerCell: 4})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for _, r := range []Range{intRange(t, 1, 10), intRange(t, 21, 40), intRange(t, 51, 60)} {
		if err := s.AddRange(0, r); err != nil {
			t.Fatalf("AddRange failed: %v", err)
		}
	}

	t.Run("BetweenRanges", func(t *testing.T) {
		left, right, err := s.Split(0, array.Int64Datum(10))
		if err != nil {
			t.Fatalf("Split failed: %v", err)
		}
		if left.DimRangeNum(0) != 1 || right.DimRangeNum(0) != 2 {
			t.Errorf("split shape = %d|%d, expected 1|2", left.DimRangeNum(0), right.DimRangeNum(0))
		}
	})

	t.Run("StraddlingRange", func(t *testing.T) {
		left, right, err := s.Split(0, array.Int64Datum(30))
		if err != nil {
			t.Fatalf("Split failed: %v", err)
		}
		if left.DimRangeNum(0) != 2 || right.DimRangeNum(0) != 2 {
			t.Errorf("split shape = %d|%d, expected 2|2", left.DimRangeNum(0), right.DimRangeNum(0))
		}
		lr := left.Ranges(0)[1]
		if lr.Lo.Int64() != 21 || lr.Hi.Int64() != 30 {
			t.Errorf("left straddle = [%d, %d], expected [21, 30]", lr.Lo.Int64(), lr.Hi.Int64())
		}
		rr := right.Ranges(0)[0]
		if rr.Lo.Int64() != 31 || rr.Hi.Int64() != 40 {
			t.Errorf("right straddle = [%d, %d], expected [31, 40]", rr.Lo.Int64(), rr.Hi.Int64())
		}
	})

	t.Run("PointOutside", func(t *testing.T) {
		if _, _, err := s.Split(0, array.Int64Datum(70)); err == nil {
			t.Error("expected split point outside ranges to fail")
		}
	})
}

func TestCloneIndependence(t *testing.T) {
	s, err := New(int2DSchema(), RowMajor, &measureEstimator{bytesPerCell: 4})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.AddRange(0, intRange(t, 1, 10)); err != nil {
		t.Fatalf("AddRange failed: %v", err)
	}

	c := s.Clone()
	if err := c.AddRange(0, intRange(t, 20, 30)); err != nil {
		t.Fatalf("AddRange on clone failed: %v", err)
	}
	if s.DimRangeNum(0) != 1 {
		t.Errorf("original mutated by clone: %d ranges", s.DimRangeNum(0))
	}
	if c.DimRangeNum(0) != 2 {
		t.Errorf("clone has %d ranges, expected 2", c.DimRangeNum(0))
	}
}
