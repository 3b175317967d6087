package array

import "errors"

// Errors
var (
	ErrUnknownDataType   = errors.New("unknown data type")
	ErrNonNumericDomain  = errors.New("data type not allowed on a dimension")
	ErrEmptyDomain       = errors.New("domain lower bound exceeds upper bound")
	ErrBadTileExtent     = errors.New("tile extent must be positive")
	ErrMixedDimTypes     = errors.New("all dimensions must share one data type")
	ErrNoDimensions      = errors.New("schema requires at least one dimension")
	ErrNoAttributes      = errors.New("schema requires at least one attribute")
	ErrDuplicateAttr     = errors.New("duplicate attribute name")
	ErrDuplicateDim      = errors.New("duplicate dimension name")
	ErrAttributeNotFound = errors.New("attribute not found")
)

// DataType represents the data type of a dimension or attribute
type DataType uint8

const (
	TypeInt8 DataType = iota
	TypeInt16
	TypeInt32
	TypeInt64
	TypeUint8
	TypeUint16
	TypeUint32
	TypeUint64
	TypeFloat32
	TypeFloat64
	TypeString // var-sized attributes only
	TypeBytes  // var-sized attributes only
)

// String returns the name of the data type
func (dt DataType) String() string {
	switch dt {
	case TypeInt8:
		return "int8"
	case TypeInt16:
		return "int16"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeUint8:
		return "uint8"
	case TypeUint16:
		return "uint16"
	case TypeUint32:
		return "uint32"
	case TypeUint64:
		return "uint64"
	case TypeFloat32:
		return "float32"
	case TypeFloat64:
		return "float64"
	case TypeString:
		return "string"
	case TypeBytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// Size returns the size in bytes of one value of the data type.
// Var-sized types report the size of one offset entry.
func (dt DataType) Size() uint64 {
	switch dt {
	case TypeInt8, TypeUint8:
		return 1
	case TypeInt16, TypeUint16:
		return 2
	case TypeInt32, TypeUint32, TypeFloat32:
		return 4
	case TypeInt64, TypeUint64, TypeFloat64:
		return 8
	case TypeString, TypeBytes:
		return 8 // offset entries
	default:
		return 8
	}
}

// IsNumeric reports whether the type can be used as a dimension domain.
func (dt DataType) IsNumeric() bool {
	return dt <= TypeFloat64
}

// IsFloat reports whether the type is a floating-point type.
func (dt DataType) IsFloat() bool {
	return dt == TypeFloat32 || dt == TypeFloat64
}

// IsVarSized reports whether attribute cells of this type have variable length.
func (dt DataType) IsVarSized() bool {
	return dt == TypeString || dt == TypeBytes
}
