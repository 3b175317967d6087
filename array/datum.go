package array

import "math"

// Datum holds one coordinate value as a raw 64-bit pattern. Signed integers
// are stored two's-complement sign-extended, unsigned integers zero-extended,
// floats as their IEEE-754 bit patterns. The interpretation of a Datum is
// always relative to a DataType; mixing datums of different types is a bug.
type Datum uint64

// Int64Datum encodes a signed integer coordinate.
func Int64Datum(v int64) Datum {
	return Datum(uint64(v))
}

// Uint64Datum encodes an unsigned integer coordinate.
func Uint64Datum(v uint64) Datum {
	return Datum(v)
}

// Float32Datum encodes a float32 coordinate.
func Float32Datum(v float32) Datum {
	return Datum(uint64(math.Float32bits(v)))
}

// Float64Datum encodes a float64 coordinate.
func Float64Datum(v float64) Datum {
	return Datum(math.Float64bits(v))
}

// Int64 decodes the datum as a signed integer.
func (d Datum) Int64() int64 {
	return int64(uint64(d))
}

// Uint64 decodes the datum as an unsigned integer.
func (d Datum) Uint64() uint64 {
	return uint64(d)
}

// Float32 decodes the datum as a float32.
func (d Datum) Float32() float32 {
	return math.Float32frombits(uint32(d))
}

// Float64 decodes the datum as a float64.
func (d Datum) Float64() float64 {
	return math.Float64frombits(uint64(d))
}
