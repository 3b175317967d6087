package array

import (
	"fmt"
	"math"
)

// TileOrder determines how space tiles (and cells within them) are laid out
// in the global storage order.
type TileOrder uint8

const (
	TileRowMajor TileOrder = iota
	TileColMajor
)

// String returns the string representation of TileOrder
func (to TileOrder) String() string {
	switch to {
	case TileRowMajor:
		return "row-major"
	case TileColMajor:
		return "col-major"
	default:
		return "unknown"
	}
}

// Dimension describes one axis of the array domain.
type Dimension struct {
	Name       string   `json:"name"`
	Type       DataType `json:"type"`
	DomainLo   Datum    `json:"domain_lo"`
	DomainHi   Datum    `json:"domain_hi"`
	TileExtent Datum    `json:"tile_extent"`
}

// ExtentMeasure returns the tile extent as a measure comparable to
// DomainOps.Measure: cell count for integer domains, length for real ones.
func (d *Dimension) ExtentMeasure() float64 {
	switch d.Type {
	case TypeFloat32:
		return float64(d.TileExtent.Float32())
	case TypeFloat64:
		return d.TileExtent.Float64()
	case TypeUint8, TypeUint16, TypeUint32, TypeUint64:
		return float64(d.TileExtent.Uint64())
	default:
		return float64(d.TileExtent.Int64())
	}
}

// TileNum returns the number of space tiles along the dimension.
func (d *Dimension) TileNum() uint64 {
	ops := MustOps(d.Type)
	span := ops.Measure(d.DomainLo, d.DomainHi)
	ext := d.ExtentMeasure()
	if ext <= 0 {
		return 0
	}
	n := math.Ceil(span / ext)
	if n < 1 {
		return 1
	}
	return uint64(n)
}

// Attribute describes one named attribute of the array.
type Attribute struct {
	Name string   `json:"name"`
	Type DataType `json:"type"`
}

// VarSized reports whether cells of the attribute have variable length.
func (a *Attribute) VarSized() bool {
	return a.Type.IsVarSized()
}

// CellSize returns the fixed bytes per cell: the value size for fixed-sized
// attributes, the offset entry size for var-sized ones.
func (a *Attribute) CellSize() uint64 {
	return a.Type.Size()
}

// Schema describes an array: its dimensions, attributes and storage orders.
type Schema struct {
	Name       string      `json:"name"`
	Dimensions []Dimension `json:"dimensions"`
	Attributes []Attribute `json:"attributes"`
	TileOrder  TileOrder   `json:"tile_order"`
	CellOrder  TileOrder   `json:"cell_order"`
}

// DimNum returns the number of dimensions.
func (s *Schema) DimNum() int {
	return len(s.Dimensions)
}

// DimType returns the shared coordinate data type of the dimensions.
func (s *Schema) DimType() DataType {
	return s.Dimensions[0].Type
}

// DomainOps returns the domain operations for the dimension type.
func (s *Schema) DomainOps() DomainOps {
	return MustOps(s.DimType())
}

// Attr returns the attribute with the given name.
func (s *Schema) Attr(name string) (*Attribute, bool) {
	for i := range s.Attributes {
		if s.Attributes[i].Name == name {
			return &s.Attributes[i], true
		}
	}
	return nil, false
}

// Validate checks the structural invariants of the schema.
func (s *Schema) Validate() error {
	if len(s.Dimensions) == 0 {
		return ErrNoDimensions
	}
	if len(s.Attributes) == 0 {
		return ErrNoAttributes
	}

	dimNames := make(map[string]bool, len(s.Dimensions))
	dt := s.Dimensions[0].Type
	for i := range s.Dimensions {
		d := &s.Dimensions[i]
		if !d.Type.IsNumeric() {
			return fmt.Errorf("%w: dimension %q is %s", ErrNonNumericDomain, d.Name, d.Type)
		}
		if d.Type != dt {
			return fmt.Errorf("%w: dimension %q is %s, expected %s", ErrMixedDimTypes, d.Name, d.Type, dt)
		}
		ops := MustOps(d.Type)
		if ops.Less(d.DomainHi, d.DomainLo) {
			return fmt.Errorf("%w: dimension %q", ErrEmptyDomain, d.Name)
		}
		if !extentPositive(d.Type, d.TileExtent) {
			return fmt.Errorf("%w: dimension %q", ErrBadTileExtent, d.Name)
		}
		if dimNames[d.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateDim, d.Name)
		}
		dimNames[d.Name] = true
	}

	attrNames := make(map[string]bool, len(s.Attributes))
	for i := range s.Attributes {
		a := &s.Attributes[i]
		if attrNames[a.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateAttr, a.Name)
		}
		attrNames[a.Name] = true
	}
	return nil
}

func extentPositive(dt DataType, extent Datum) bool {
	switch dt {
	case TypeFloat32:
		return extent.Float32() > 0
	case TypeFloat64:
		return extent.Float64() > 0
	case TypeUint8, TypeUint16, TypeUint32, TypeUint64:
		return extent.Uint64() > 0
	default:
		return extent.Int64() > 0
	}
}

// TotalTiles returns the number of space tiles in the full domain.
func (s *Schema) TotalTiles() uint64 {
	n := uint64(1)
	for i := range s.Dimensions {
		n *= s.Dimensions[i].TileNum()
	}
	return n
}

// LinearTileIdx flattens per-dimension tile coordinates into a single tile
// index following the schema's tile order.
func (s *Schema) LinearTileIdx(coords []uint64) uint64 {
	idx := uint64(0)
	if s.TileOrder == TileRowMajor {
		for d := 0; d < len(coords); d++ {
			idx = idx*s.Dimensions[d].TileNum() + coords[d]
		}
	} else {
		for d := len(coords) - 1; d >= 0; d-- {
			idx = idx*s.Dimensions[d].TileNum() + coords[d]
		}
	}
	return idx
}
