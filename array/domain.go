package array

import (
	"fmt"
	"math"
)

// DomainOps provides the numeric operations the engine needs over one
// coordinate type. Implementations are registered per DataType in a central
// dispatch table and operate on Datum-encoded values.
type DomainOps interface {
	Type() DataType
	Less(a, b Datum) bool
	Eq(a, b Datum) bool

	// Splittable reports whether [lo, hi] can be split into two non-empty
	// closed intervals.
	Splittable(lo, hi Datum) bool

	// SplitPoint returns a midpoint p of [lo, hi] such that [lo, p] and
	// [Succ(p), hi] are both non-empty. ok is false when no such point
	// exists (unary integer range, or adjacent floats after rounding).
	SplitPoint(lo, hi Datum) (p Datum, ok bool)

	// Succ returns the next representable value after a.
	Succ(a Datum) Datum

	// Measure returns the extent of [lo, hi]: cell count for integer
	// domains, interval length for real domains.
	Measure(lo, hi Datum) float64

	// Cells returns the number of cells in [lo, hi], saturating at
	// MaxUint64. Real domains always saturate unless the range is unary.
	Cells(lo, hi Datum) uint64

	// TileIdx returns the index of the space tile holding v, for tiles of
	// the given extent anchored at origin.
	TileIdx(v, origin, extent Datum) uint64

	// TileLower and TileUpper bound space tile idx.
	TileLower(origin, extent Datum, idx uint64) Datum
	TileUpper(origin, extent Datum, idx uint64) Datum

	// TileSplitPoint returns a splitting point p strictly inside [lo, hi]
	// such that [Succ(p), hi] starts on the tile boundary nearest the
	// midpoint of the tiles covered by the range. ok is false when the
	// range lies within a single space tile.
	TileSplitPoint(lo, hi, origin, extent Datum) (p Datum, ok bool)

	Format(v Datum) string
}

// domainOps is the central dispatch table keyed by dimension data type.
var domainOps = map[DataType]DomainOps{
	TypeInt8:    signedOps{TypeInt8},
	TypeInt16:   signedOps{TypeInt16},
	TypeInt32:   signedOps{TypeInt32},
	TypeInt64:   signedOps{TypeInt64},
	TypeUint8:   unsignedOps{TypeUint8},
	TypeUint16:  unsignedOps{TypeUint16},
	TypeUint32:  unsignedOps{TypeUint32},
	TypeUint64:  unsignedOps{TypeUint64},
	TypeFloat32: float32Ops{},
	TypeFloat64: float64Ops{},
}

// Ops returns the domain operations for a dimension data type.
func Ops(dt DataType) (DomainOps, error) {
	ops, ok := domainOps[dt]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNonNumericDomain, dt)
	}
	return ops, nil
}

// MustOps returns the domain operations for a data type already validated by
// the schema. Panics on a non-numeric type.
func MustOps(dt DataType) DomainOps {
	ops, err := Ops(dt)
	if err != nil {
		panic(err)
	}
	return ops
}

/* ------------------------- signed integer domains ------------------------- */

type signedOps struct {
	dt DataType
}

func (o signedOps) Type() DataType        { return o.dt }
func (o signedOps) Less(a, b Datum) bool  { return a.Int64() < b.Int64() }
func (o signedOps) Eq(a, b Datum) bool    { return a == b }
func (o signedOps) Succ(a Datum) Datum    { return Int64Datum(a.Int64() + 1) }
func (o signedOps) Format(v Datum) string { return fmt.Sprintf("%d", v.Int64()) }

func (o signedOps) Splittable(lo, hi Datum) bool {
	return lo.Int64() < hi.Int64()
}

// udiff returns hi-lo as an unsigned magnitude, exact for the full int64
// range via two's-complement wraparound.
func udiff(lo, hi int64) uint64 {
	return uint64(hi) - uint64(lo)
}

func (o signedOps) SplitPoint(lo, hi Datum) (Datum, bool) {
	l, h := lo.Int64(), hi.Int64()
	if l >= h {
		return 0, false
	}
	return Int64Datum(l + int64(udiff(l, h)/2)), true
}

func (o signedOps) Measure(lo, hi Datum) float64 {
	return float64(udiff(lo.Int64(), hi.Int64())) + 1
}

func (o signedOps) Cells(lo, hi Datum) uint64 {
	d := udiff(lo.Int64(), hi.Int64())
	if d == math.MaxUint64 {
		return math.MaxUint64
	}
	return d + 1
}

func (o signedOps) TileIdx(v, origin, extent Datum) uint64 {
	return udiff(origin.Int64(), v.Int64()) / extent.Uint64()
}

func (o signedOps) TileLower(origin, extent Datum, idx uint64) Datum {
	return Int64Datum(origin.Int64() + int64(idx*extent.Uint64()))
}

func (o signedOps) TileUpper(origin, extent Datum, idx uint64) Datum {
	return Int64Datum(origin.Int64() + int64((idx+1)*extent.Uint64()) - 1)
}

func (o signedOps) TileSplitPoint(lo, hi, origin, extent Datum) (Datum, bool) {
	t0 := o.TileIdx(lo, origin, extent)
	t1 := o.TileIdx(hi, origin, extent)
	if t0 == t1 {
		return 0, false
	}
	tmid := t0 + (t1-t0+1)/2
	// Upper endpoint of tile tmid-1, so the right half starts on a boundary.
	return Int64Datum(origin.Int64() + int64(tmid*extent.Uint64()) - 1), true
}

/* ------------------------ unsigned integer domains ------------------------ */

type unsignedOps struct {
	dt DataType
}

func (o unsignedOps) Type() DataType        { return o.dt }
func (o unsignedOps) Less(a, b Datum) bool  { return a.Uint64() < b.Uint64() }
func (o unsignedOps) Eq(a, b Datum) bool    { return a == b }
func (o unsignedOps) Succ(a Datum) Datum    { return Uint64Datum(a.Uint64() + 1) }
func (o unsignedOps) Format(v Datum) string { return fmt.Sprintf("%d", v.Uint64()) }

func (o unsignedOps) Splittable(lo, hi Datum) bool {
	return lo.Uint64() < hi.Uint64()
}

func (o unsignedOps) SplitPoint(lo, hi Datum) (Datum, bool) {
	l, h := lo.Uint64(), hi.Uint64()
	if l >= h {
		return 0, false
	}
	return Uint64Datum(l + (h-l)/2), true
}

func (o unsignedOps) Measure(lo, hi Datum) float64 {
	return float64(hi.Uint64()-lo.Uint64()) + 1
}

func (o unsignedOps) Cells(lo, hi Datum) uint64 {
	d := hi.Uint64() - lo.Uint64()
	if d == math.MaxUint64 {
		return math.MaxUint64
	}
	return d + 1
}

func (o unsignedOps) TileIdx(v, origin, extent Datum) uint64 {
	return (v.Uint64() - origin.Uint64()) / extent.Uint64()
}

func (o unsignedOps) TileLower(origin, extent Datum, idx uint64) Datum {
	return Uint64Datum(origin.Uint64() + idx*extent.Uint64())
}

func (o unsignedOps) TileUpper(origin, extent Datum, idx uint64) Datum {
	return Uint64Datum(origin.Uint64() + (idx+1)*extent.Uint64() - 1)
}

func (o unsignedOps) TileSplitPoint(lo, hi, origin, extent Datum) (Datum, bool) {
	t0 := o.TileIdx(lo, origin, extent)
	t1 := o.TileIdx(hi, origin, extent)
	if t0 == t1 {
		return 0, false
	}
	tmid := t0 + (t1-t0+1)/2
	return Uint64Datum(origin.Uint64() + tmid*extent.Uint64() - 1), true
}

/* ----------------------------- float domains ------------------------------ */

type float64Ops struct{}

func (o float64Ops) Type() DataType        { return TypeFloat64 }
func (o float64Ops) Less(a, b Datum) bool  { return a.Float64() < b.Float64() }
func (o float64Ops) Eq(a, b Datum) bool    { return a.Float64() == b.Float64() }
func (o float64Ops) Format(v Datum) string { return fmt.Sprintf("%g", v.Float64()) }

func (o float64Ops) Succ(a Datum) Datum {
	return Float64Datum(math.Nextafter(a.Float64(), math.Inf(1)))
}

func (o float64Ops) Splittable(lo, hi Datum) bool {
	return lo.Float64() < hi.Float64()
}

func (o float64Ops) SplitPoint(lo, hi Datum) (Datum, bool) {
	l, h := lo.Float64(), hi.Float64()
	if !(l < h) {
		return 0, false
	}
	// Averaging halves avoids overflow near the type extremes.
	p := l/2 + h/2
	if p >= h {
		p = math.Nextafter(h, math.Inf(-1))
	}
	if p == l && math.Nextafter(l, math.Inf(1)) == h {
		return 0, false
	}
	if p < l {
		return 0, false
	}
	return Float64Datum(p), true
}

func (o float64Ops) Measure(lo, hi Datum) float64 {
	return hi.Float64() - lo.Float64()
}

func (o float64Ops) Cells(lo, hi Datum) uint64 {
	if lo.Float64() == hi.Float64() {
		return 1
	}
	return math.MaxUint64
}

func (o float64Ops) TileIdx(v, origin, extent Datum) uint64 {
	t := math.Floor((v.Float64() - origin.Float64()) / extent.Float64())
	if t < 0 {
		return 0
	}
	return uint64(t)
}

func (o float64Ops) TileLower(origin, extent Datum, idx uint64) Datum {
	return Float64Datum(origin.Float64() + float64(idx)*extent.Float64())
}

func (o float64Ops) TileUpper(origin, extent Datum, idx uint64) Datum {
	return Float64Datum(origin.Float64() + float64(idx+1)*extent.Float64())
}

func (o float64Ops) TileSplitPoint(lo, hi, origin, extent Datum) (Datum, bool) {
	t0 := o.TileIdx(lo, origin, extent)
	t1 := o.TileIdx(hi, origin, extent)
	if t0 == t1 {
		return 0, false
	}
	tmid := t0 + (t1-t0+1)/2
	boundary := origin.Float64() + float64(tmid)*extent.Float64()
	// The right half starts exactly on the boundary.
	p := math.Nextafter(boundary, math.Inf(-1))
	if p < lo.Float64() {
		return 0, false
	}
	return Float64Datum(p), true
}

type float32Ops struct{}

func (o float32Ops) Type() DataType        { return TypeFloat32 }
func (o float32Ops) Less(a, b Datum) bool  { return a.Float32() < b.Float32() }
func (o float32Ops) Eq(a, b Datum) bool    { return a.Float32() == b.Float32() }
func (o float32Ops) Format(v Datum) string { return fmt.Sprintf("%g", v.Float32()) }

func (o float32Ops) Succ(a Datum) Datum {
	return Float32Datum(math.Nextafter32(a.Float32(), float32(math.Inf(1))))
}

func (o float32Ops) Splittable(lo, hi Datum) bool {
	return lo.Float32() < hi.Float32()
}

func (o float32Ops) SplitPoint(lo, hi Datum) (Datum, bool) {
	l, h := lo.Float32(), hi.Float32()
	if !(l < h) {
		return 0, false
	}
	p := l/2 + h/2
	if p >= h {
		p = math.Nextafter32(h, float32(math.Inf(-1)))
	}
	if p == l && math.Nextafter32(l, float32(math.Inf(1))) == h {
		return 0, false
	}
	if p < l {
		return 0, false
	}
	return Float32Datum(p), true
}

func (o float32Ops) Measure(lo, hi Datum) float64 {
	return float64(hi.Float32() - lo.Float32())
}

func (o float32Ops) Cells(lo, hi Datum) uint64 {
	if lo.Float32() == hi.Float32() {
		return 1
	}
	return math.MaxUint64
}

func (o float32Ops) TileIdx(v, origin, extent Datum) uint64 {
	t := math.Floor(float64((v.Float32() - origin.Float32()) / extent.Float32()))
	if t < 0 {
		return 0
	}
	return uint64(t)
}

func (o float32Ops) TileLower(origin, extent Datum, idx uint64) Datum {
	return Float32Datum(origin.Float32() + float32(idx)*extent.Float32())
}

func (o float32Ops) TileUpper(origin, extent Datum, idx uint64) Datum {
	return Float32Datum(origin.Float32() + float32(idx+1)*extent.Float32())
}

func (o float32Ops) TileSplitPoint(lo, hi, origin, extent Datum) (Datum, bool) {
	t0 := o.TileIdx(lo, origin, extent)
	t1 := o.TileIdx(hi, origin, extent)
	if t0 == t1 {
		return 0, false
	}
	tmid := t0 + (t1-t0+1)/2
	boundary := origin.Float32() + float32(tmid)*extent.Float32()
	p := math.Nextafter32(boundary, float32(math.Inf(-1)))
	if p < lo.Float32() {
		return 0, false
	}
	return Float32Datum(p), true
}
