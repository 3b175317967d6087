package estimate

import (
	"testing"

	"arraydb/array"
	"arraydb/fragment"
	"arraydb/subarray"
)

func line1DSchema() *array.Schema {
	return &array.Schema{
		Name: "line",
		Dimensions: []array.Dimension{
			{Name: "x", Type: array.TypeInt32, DomainLo: array.Int64Datum(1), DomainHi: array.Int64Datum(100), TileExtent: array.Int64Datum(10)},
		},
		Attributes: []array.Attribute{
			{Name: "val", Type: array.TypeInt32},
			{Name: "tags", Type: array.TypeString},
		},
	}
}

func grid2DSchema() *array.Schema {
	return &array.Schema{
		Name: "grid",
		Dimensions: []array.Dimension{
			{Name: "r", Type: array.TypeInt32, DomainLo: array.Int64Datum(1), DomainHi: array.Int64Datum(20), TileExtent: array.Int64Datum(10)},
			{Name: "c", Type: array.TypeInt32, DomainLo: array.Int64Datum(1), DomainHi: array.Int64Datum(20), TileExtent: array.Int64Datum(10)},
		},
		Attributes: []array.Attribute{{Name: "val", Type: array.TypeInt32}},
	}
}

func denseLineFragment(id string, bytesPerTile uint64) *fragment.Meta {
	m := fragment.NewMeta(id, 10)
	for tile := uint64(0); tile < 10; tile++ {
		m.SetTileSize("val", tile, fragment.TileSize{BytesFixed: bytesPerTile})
	}
	return m
}

func lineSubarray(t *testing.T, schema *array.Schema, est subarray.Estimator, lo, hi int64) *subarray.Subarray {
	t.Helper()
	s, err := subarray.New(schema, subarray.RowMajor, est)
	if err != nil {
		t.Fatalf("subarray.New failed: %v", err)
	}
	r, err := subarray.NewRange(array.TypeInt32, array.Int64Datum(lo), array.Int64Datum(hi))
	if err != nil {
		t.Fatalf("NewRange failed: %v", err)
	}
	if err := s.AddRange(0, r); err != nil {
		t.Fatalf("AddRange failed: %v", err)
	}
	return s
}

func TestEstimatorTileOverlap(t *testing.T) {
	schema := line1DSchema()
	frag := denseLineFragment("f1", 40)
	e, err := New(schema, []*fragment.Meta{frag}, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	testCases := []struct {
		lo, hi   int64
		expected uint64
	}{
		{1, 100, 400}, // all ten tiles fully covered
		{1, 50, 200},  // five tiles
		{1, 5, 20},    // half of tile 0
		{6, 15, 40},   // half of tile 0 plus half of tile 1
		{11, 11, 4},   // one cell of tile 1
	}
	for _, tc := range testCases {
		s := lineSubarray(t, schema, e, tc.lo, tc.hi)
		est, err := e.EstimateResultSize(s, "val")
		if err != nil {
			t.Fatalf("EstimateResultSize([%d, %d]) failed: %v", tc.lo, tc.hi, err)
		}
		if est.SizeFixed != tc.expected {
			t.Errorf("estimate([%d, %d]) = %d, expected %d", tc.lo, tc.hi, est.SizeFixed, tc.expected)
		}
	}
}

func TestEstimatorSkipsEmptyTiles(t *testing.T) {
	schema := line1DSchema()
	m := fragment.NewMeta("sparse", 10)
	m.SetTileSize("val", 2, fragment.TileSize{BytesFixed: 40})
	e, err := New(schema, []*fragment.Meta{m}, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// [1, 100] overlaps every tile but only tile 2 holds data.
	s := lineSubarray(t, schema, e, 1, 100)
	est, err := e.EstimateResultSize(s, "val")
	if err != nil {
		t.Fatalf("EstimateResultSize failed: %v", err)
	}
	if est.SizeFixed != 40 {
		t.Errorf("estimate = %d, expected 40", est.SizeFixed)
	}
}

func TestEstimatorSumsFragments(t *testing.T) {
	schema := line1DSchema()
	frags := []*fragment.Meta{
		denseLineFragment("f1", 40),
		denseLineFragment("f2", 40),
	}
	e, err := New(schema, frags, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	s := lineSubarray(t, schema, e, 1, 10)
	est, err := e.EstimateResultSize(s, "val")
	if err != nil {
		t.Fatalf("EstimateResultSize failed: %v", err)
	}
	if est.SizeFixed != 80 {
		t.Errorf("estimate = %d, expected 80 across two fragments", est.SizeFixed)
	}
}

func TestEstimatorVarSized(t *testing.T) {
	schema := line1DSchema()
	m := fragment.NewMeta("f1", 10)
	m.SetTileSize("tags", 0, fragment.TileSize{BytesFixed: 80, BytesVar: 900})
	e, err := New(schema, []*fragment.Meta{m}, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	s := lineSubarray(t, schema, e, 1, 5)
	est, err := e.EstimateResultSize(s, "tags")
	if err != nil {
		t.Fatalf("EstimateResultSize failed: %v", err)
	}
	if est.SizeFixed != 40 {
		t.Errorf("offsets estimate = %d, expected 40", est.SizeFixed)
	}
	if est.SizeVar != 450 {
		t.Errorf("values estimate = %d, expected 450", est.SizeVar)
	}
}

func TestEstimator2DCoverage(t *testing.T) {
	schema := grid2DSchema()
	m := fragment.NewMeta("f1", 4)
	for tile := uint64(0); tile < 4; tile++ {
		m.SetTileSize("val", tile, fragment.TileSize{BytesFixed: 400}) // 100 cells x 4B
	}
	e, err := New(schema, []*fragment.Meta{m}, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	s, err := subarray.New(schema, subarray.RowMajor, e)
	if err != nil {
		t.Fatalf("subarray.New failed: %v", err)
	}
	// A 5x5 corner of tile 0: half coverage in each dimension, a quarter of
	// the tile.
	for d := 0; d < 2; d++ {
		r, err := subarray.NewRange(array.TypeInt32, array.Int64Datum(1), array.Int64Datum(5))
		if err != nil {
			t.Fatalf("NewRange failed: %v", err)
		}
		if err := s.AddRange(d, r); err != nil {
			t.Fatalf("AddRange failed: %v", err)
		}
	}
	est, err := e.EstimateResultSize(s, "val")
	if err != nil {
		t.Fatalf("EstimateResultSize failed: %v", err)
	}
	if est.SizeFixed != 100 { // 400 * (5/10) * (5/10)
		t.Errorf("estimate = %d, expected 100", est.SizeFixed)
	}
}

func TestEstimatorMonotone(t *testing.T) {
	schema := line1DSchema()
	frag := denseLineFragment("f1", 40)
	e, err := New(schema, []*fragment.Meta{frag}, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	prev := uint64(0)
	for hi := int64(10); hi <= 100; hi += 10 {
		s := lineSubarray(t, schema, e, 1, hi)
		est, err := e.EstimateResultSize(s, "val")
		if err != nil {
			t.Fatalf("EstimateResultSize failed: %v", err)
		}
		if est.SizeFixed < prev {
			t.Fatalf("estimate shrank while the span grew: %d after %d", est.SizeFixed, prev)
		}
		prev = est.SizeFixed
	}
}
