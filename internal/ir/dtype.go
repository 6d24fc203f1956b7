// Package ir provides the intermediate representation graph that ONNX
// operators are lowered into.
package ir

import "strings"

// DataType represents the element type of a Value.
type DataType int

// Supported element types.
const (
	Invalid DataType = iota
	Float16
	BFloat16
	Float32
	Float64
	Int32
	Int64
	Uint8
	Uint32
	Uint64
	Bool
)

// Size returns the byte size of one element of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float16, BFloat16:
		return 2
	case Float32, Int32, Uint32:
		return 4
	case Float64, Int64, Uint64:
		return 8
	case Uint8, Bool:
		return 1
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float16:
		return "float16"
	case BFloat16:
		return "bfloat16"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	case Bool:
		return "bool"
	default:
		return "invalid"
	}
}

// IsFloat reports whether the data type is a floating-point type.
func (dt DataType) IsFloat() bool {
	switch dt {
	case Float16, BFloat16, Float32, Float64:
		return true
	default:
		return false
	}
}

// IsInteger reports whether the data type is an integer type (signed or not).
func (dt DataType) IsInteger() bool {
	switch dt {
	case Int32, Int64, Uint8, Uint32, Uint64:
		return true
	default:
		return false
	}
}

// TypeSet is an immutable set of element types. Sets are plain values and can
// be shared across goroutines without synchronization.
type TypeSet uint32

// Types builds a TypeSet containing the given data types.
func Types(dts ...DataType) TypeSet {
	var ts TypeSet
	for _, dt := range dts {
		ts |= 1 << uint(dt)
	}
	return ts
}

// Has reports whether dt is a member of the set.
func (ts TypeSet) Has(dt DataType) bool {
	return ts&(1<<uint(dt)) != 0
}

// With returns a new set with the given types added.
func (ts TypeSet) With(dts ...DataType) TypeSet {
	return ts | Types(dts...)
}

// String lists the member types, for diagnostics.
func (ts TypeSet) String() string {
	var names []string
	for dt := Float16; dt <= Bool; dt++ {
		if ts.Has(dt) {
			names = append(names, dt.String())
		}
	}
	return strings.Join(names, ",")
}
