package ir

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Dim is a single dimension of a Shape. DynamicDim marks a dimension whose
// extent is only known at run time.
type Dim int64

// DynamicDim is the dimension value used for run-time-only extents.
const DynamicDim Dim = -1

// IsStatic reports whether the dimension's extent is known.
func (d Dim) IsStatic() bool {
	return d >= 0
}

func (d Dim) String() string {
	if !d.IsStatic() {
		return "?"
	}
	return strconv.FormatInt(int64(d), 10)
}

// Shape describes the dimensions of a Value. A shape is static (rank and all
// dimensions known), partially static (known rank, some dynamic dimensions),
// or fully dynamic (unknown rank).
//
// The zero value is a scalar shape; use DynamicShape for unknown rank.
type Shape struct {
	dims    []Dim
	dynRank bool
}

// MakeShape builds a shape of known rank from the given dimensions.
func MakeShape(dims ...Dim) Shape {
	s := Shape{dims: make([]Dim, len(dims))}
	copy(s.dims, dims)
	return s
}

// Static builds a fully static shape.
func Static(dims ...int64) Shape {
	s := Shape{dims: make([]Dim, len(dims))}
	for i, d := range dims {
		s.dims[i] = Dim(d)
	}
	return s
}

// ScalarShape returns the rank-0 shape.
func ScalarShape() Shape {
	return Shape{}
}

// DynamicShape returns the shape with unknown rank.
func DynamicShape() Shape {
	return Shape{dynRank: true}
}

// HasRank reports whether the rank is known.
func (s Shape) HasRank() bool {
	return !s.dynRank
}

// Rank returns the number of dimensions. It panics when the rank is unknown;
// check HasRank first.
func (s Shape) Rank() int {
	if s.dynRank {
		panic("ir: Rank called on shape with unknown rank")
	}
	return len(s.dims)
}

// Dim returns the i-th dimension.
func (s Shape) Dim(i int) Dim {
	if s.dynRank {
		panic("ir: Dim called on shape with unknown rank")
	}
	return s.dims[i]
}

// Dims returns a copy of the dimensions. Nil when the rank is unknown.
func (s Shape) Dims() []Dim {
	if s.dynRank {
		return nil
	}
	out := make([]Dim, len(s.dims))
	copy(out, s.dims)
	return out
}

// IsStatic reports whether the rank and every dimension are known.
func (s Shape) IsStatic() bool {
	if s.dynRank {
		return false
	}
	for _, d := range s.dims {
		if !d.IsStatic() {
			return false
		}
	}
	return true
}

// IsScalar reports whether the shape is known to be rank 0.
func (s Shape) IsScalar() bool {
	return !s.dynRank && len(s.dims) == 0
}

// NumElements returns the total element count of a static shape.
// The second return is false when the shape is not fully static.
func (s Shape) NumElements() (int64, bool) {
	if !s.IsStatic() {
		return 0, false
	}
	n := int64(1)
	for _, d := range s.dims {
		n *= int64(d)
	}
	return n, true
}

// Equal reports whether two shapes are identical, treating dynamic
// dimensions as equal only to dynamic dimensions.
func (s Shape) Equal(other Shape) bool {
	if s.dynRank || other.dynRank {
		return s.dynRank == other.dynRank
	}
	if len(s.dims) != len(other.dims) {
		return false
	}
	for i := range s.dims {
		if s.dims[i] != other.dims[i] {
			return false
		}
	}
	return true
}

// String formats the shape as "[2,?,3]"; "[]" for scalars, "[*]" for
// unknown rank.
func (s Shape) String() string {
	if s.dynRank {
		return "[*]"
	}
	parts := make([]string, len(s.dims))
	for i, d := range s.dims {
		parts[i] = d.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// BroadcastShapes applies NumPy-style broadcasting to two partial shapes.
//
// Dimensions are compared right to left; missing dimensions count as 1. A
// static pair must be equal or contain a 1. A dynamic dimension broadcasts
// with anything: against a static dimension > 1 the result is that dimension,
// against 1 or another dynamic dimension the result stays dynamic. If either
// rank is unknown the result has unknown rank.
func BroadcastShapes(a, b Shape) (Shape, error) {
	if !a.HasRank() || !b.HasRank() {
		return DynamicShape(), nil
	}
	rank := max(len(a.dims), len(b.dims))
	out := make([]Dim, rank)
	for i := 0; i < rank; i++ {
		ad, bd := Dim(1), Dim(1)
		if idx := len(a.dims) - 1 - i; idx >= 0 {
			ad = a.dims[idx]
		}
		if idx := len(b.dims) - 1 - i; idx >= 0 {
			bd = b.dims[idx]
		}
		d, ok := broadcastDim(ad, bd)
		if !ok {
			return Shape{}, errors.Errorf("shapes %s and %s are not broadcastable at axis %d (%s vs %s)",
				a, b, rank-1-i, ad, bd)
		}
		out[rank-1-i] = d
	}
	return Shape{dims: out}, nil
}

func broadcastDim(a, b Dim) (Dim, bool) {
	switch {
	case a == b:
		return a, true
	case a == 1:
		return b, true
	case b == 1:
		return a, true
	case !a.IsStatic():
		return b, true
	case !b.IsStatic():
		return a, true
	default:
		return 0, false
	}
}
