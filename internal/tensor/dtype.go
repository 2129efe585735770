// Package tensor provides the element types and flat evaluation buffers the
// layer core operates on.
package tensor

// DType is a constraint for supported element types.
// Float32 is the fast inference path; float64 is the full-precision path.
type DType interface {
	~float32 | ~float64
}

// DataType represents runtime type information for buffers.
type DataType int

// Supported data types for buffers.
const (
	Float32 DataType = iota
	Float64
)

// Size returns the byte size of one element of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32:
		return 4
	case Float64:
		return 8
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return "unknown"
	}
}

// TypeOf returns the runtime type tag for a generic element type.
func TypeOf[T DType]() DataType {
	var dummy T
	switch any(dummy).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	default:
		panic("unsupported type")
	}
}
