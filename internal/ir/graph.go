package ir

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Graph is an IR graph under construction. Nodes are appended through the
// constructor methods and never removed; a Graph must not be mutated
// concurrently.
type Graph struct {
	name    string
	nodes   []*Node
	outputs []*Value
}

// NewGraph creates an empty graph.
func NewGraph(name string) *Graph {
	return &Graph{name: name}
}

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// NumNodes returns the number of nodes appended so far.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// Nodes returns the nodes in creation order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Outputs returns the values marked as graph outputs.
func (g *Graph) Outputs() []*Value {
	out := make([]*Value, len(g.outputs))
	copy(out, g.outputs)
	return out
}

// AddOutput marks v as a graph output. Outputs keep registration order.
func (g *Graph) AddOutput(v *Value) {
	g.outputs = append(g.outputs, v)
}

func (g *Graph) newNode(op OpKind, dtype DataType, shape Shape, inputs ...*Value) *Value {
	n := &Node{id: len(g.nodes), op: op, inputs: inputs}
	n.out = &Value{node: n, dtype: dtype, shape: shape}
	g.nodes = append(g.nodes, n)
	return n.out
}

// Input appends a graph input with the given name, element type and
// (possibly partial) shape.
func (g *Graph) Input(name string, dtype DataType, shape Shape) *Value {
	v := g.newNode(OpInput, dtype, shape)
	v.node.name = name
	return v
}

// Opaque appends a placeholder for a value whose producer was not lowered.
// The element type and shape are whatever the model declares for the value;
// Invalid and an unknown shape are legal when nothing is declared.
func (g *Graph) Opaque(dtype DataType, shape Shape) *Value {
	return g.newNode(OpOpaque, dtype, shape)
}

// Constant appends a constant with the given static shape and little-endian
// element payload.
func (g *Graph) Constant(dtype DataType, shape Shape, raw []byte) (*Value, error) {
	if dtype == Invalid {
		return nil, errors.New("constant element type must be valid")
	}
	n, ok := shape.NumElements()
	if !ok {
		return nil, errors.Errorf("constant shape must be static, got %s", shape)
	}
	if want := n * int64(dtype.Size()); int64(len(raw)) != want {
		return nil, errors.Errorf("constant payload is %d bytes, want %d for %s%s",
			len(raw), want, dtype, shape)
	}
	buf := make([]byte, len(raw))
	copy(buf, raw)
	return g.constant(dtype, shape, buf), nil
}

func (g *Graph) constant(dtype DataType, shape Shape, raw []byte) *Value {
	v := g.newNode(OpConstant, dtype, shape)
	v.node.raw = raw
	return v
}

// ScalarInt32 appends a rank-0 int32 constant.
func (g *Graph) ScalarInt32(v int32) *Value {
	raw := make([]byte, 4)
	binary.LittleEndian.PutUint32(raw, uint32(v))
	return g.constant(Int32, ScalarShape(), raw)
}

// ScalarInt64 appends a rank-0 int64 constant.
func (g *Graph) ScalarInt64(v int64) *Value {
	raw := make([]byte, 8)
	binary.LittleEndian.PutUint64(raw, uint64(v))
	return g.constant(Int64, ScalarShape(), raw)
}

// Int32Vector appends a 1-D int32 constant, one element per argument.
func (g *Graph) Int32Vector(vs ...int32) *Value {
	raw := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(raw[4*i:], uint32(v))
	}
	return g.constant(Int32, Static(int64(len(vs))), raw)
}

// Int64Vector appends a 1-D int64 constant, one element per argument.
func (g *Graph) Int64Vector(vs ...int64) *Value {
	raw := make([]byte, 8*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint64(raw[8*i:], uint64(v))
	}
	return g.constant(Int64, Static(int64(len(vs))), raw)
}

// ScalarFloat32 appends a rank-0 float32 constant.
func (g *Graph) ScalarFloat32(v float32) *Value {
	raw := make([]byte, 4)
	binary.LittleEndian.PutUint32(raw, math.Float32bits(v))
	return g.constant(Float32, ScalarShape(), raw)
}

// Float32Vector appends a 1-D float32 constant, one element per argument.
func (g *Graph) Float32Vector(vs ...float32) *Value {
	raw := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
	}
	return g.constant(Float32, Static(int64(len(vs))), raw)
}

// ShapeOf appends a node producing the runtime shape of v as an int64 vector.
// The result has static length when v's rank is known.
func (g *Graph) ShapeOf(v *Value) *Value {
	shape := MakeShape(DynamicDim)
	if v.shape.HasRank() {
		shape = Static(int64(v.shape.Rank()))
	}
	return g.newNode(OpShapeOf, Int64, shape, v)
}

// Squeeze appends a node removing the axes listed in the axes value from
// data's shape. Squeezed axes must have extent 1 where that is statically
// known; an empty constant axes list removes every static size-1 axis.
func (g *Graph) Squeeze(data, axes *Value) (*Value, error) {
	if !axes.dtype.IsInteger() {
		return nil, errors.Errorf("squeeze axes must be integer-typed, got %s", axes.dtype)
	}
	shape, err := squeezeShape(data.shape, axes)
	if err != nil {
		return nil, err
	}
	return g.newNode(OpSqueeze, data.dtype, shape, data, axes), nil
}

func squeezeShape(data Shape, axes *Value) (Shape, error) {
	vals, isConst := axes.ConstInt64s()
	if !isConst || !data.HasRank() {
		return DynamicShape(), nil
	}
	r := data.Rank()
	if len(vals) == 0 {
		if !data.IsStatic() {
			return DynamicShape(), nil
		}
		var dims []Dim
		for _, d := range data.Dims() {
			if d != 1 {
				dims = append(dims, d)
			}
		}
		return MakeShape(dims...), nil
	}
	drop := make(map[int]bool, len(vals))
	for _, a := range vals {
		norm, err := normalizeAxis(a, r)
		if err != nil {
			return Shape{}, errors.WithMessage(err, "squeeze")
		}
		if d := data.Dim(norm); d.IsStatic() && d != 1 {
			return Shape{}, errors.Errorf("squeeze: axis %d has extent %d, want 1", norm, d)
		}
		drop[norm] = true
	}
	dims := make([]Dim, 0, r-len(drop))
	for i := 0; i < r; i++ {
		if !drop[i] {
			dims = append(dims, data.Dim(i))
		}
	}
	return MakeShape(dims...), nil
}

// Range appends a node generating the integer sequence [start, limit) with
// the given step. The bounds must be scalars; the result length is folded to
// a static extent when all three are integer constants.
func (g *Graph) Range(start, limit, step *Value, dtype DataType) (*Value, error) {
	if dtype == Invalid {
		return nil, errors.New("range element type must be valid")
	}
	for _, v := range []*Value{start, limit, step} {
		if v.shape.HasRank() && v.shape.Rank() != 0 {
			return nil, errors.Errorf("range bounds must be scalars, got %s", v.shape)
		}
	}
	shape := MakeShape(DynamicDim)
	if n, ok := foldRangeLength(start, limit, step); ok {
		shape = Static(n)
	}
	return g.newNode(OpRange, dtype, shape, start, limit, step), nil
}

func foldRangeLength(start, limit, step *Value) (int64, bool) {
	s, ok := scalarConstInt64(start)
	if !ok {
		return 0, false
	}
	l, ok := scalarConstInt64(limit)
	if !ok {
		return 0, false
	}
	d, ok := scalarConstInt64(step)
	if !ok || d == 0 {
		return 0, false
	}
	var n int64
	if d > 0 {
		n = (l - s + d - 1) / d
	} else {
		n = (s - l - d - 1) / -d
	}
	return max(n, 0), true
}

func scalarConstInt64(v *Value) (int64, bool) {
	vals, ok := v.ConstInt64s()
	if !ok || len(vals) != 1 {
		return 0, false
	}
	return vals[0], true
}

// Exp appends an elementwise exponential node.
func (g *Graph) Exp(v *Value) *Value {
	return g.newNode(OpExp, v.dtype, v.shape, v)
}

// Log appends an elementwise natural-logarithm node.
func (g *Graph) Log(v *Value) *Value {
	return g.newNode(OpLog, v.dtype, v.shape, v)
}

// Sqrt appends an elementwise square-root node.
func (g *Graph) Sqrt(v *Value) *Value {
	return g.newNode(OpSqrt, v.dtype, v.shape, v)
}

// Add appends an elementwise addition node with broadcasting.
func (g *Graph) Add(a, b *Value) (*Value, error) { return g.binary(OpAdd, a, b) }

// Sub appends an elementwise subtraction node with broadcasting.
func (g *Graph) Sub(a, b *Value) (*Value, error) { return g.binary(OpSub, a, b) }

// Mul appends an elementwise multiplication node with broadcasting.
func (g *Graph) Mul(a, b *Value) (*Value, error) { return g.binary(OpMul, a, b) }

// Div appends an elementwise division node with broadcasting.
func (g *Graph) Div(a, b *Value) (*Value, error) { return g.binary(OpDiv, a, b) }

func (g *Graph) binary(op OpKind, a, b *Value) (*Value, error) {
	if a.dtype != b.dtype {
		return nil, errors.Errorf("%s: element type mismatch: %s vs %s", op, a.dtype, b.dtype)
	}
	shape, err := BroadcastShapes(a.shape, b.shape)
	if err != nil {
		return nil, errors.WithMessage(err, op.String())
	}
	return g.newNode(op, a.dtype, shape, a, b), nil
}

// Reduce appends a typed reduction node over data along the axes given by the
// axes value, which must be integer-typed. Negative constant axes count from
// the end; out-of-range constant axes are rejected. With keepDims the reduced
// axes are retained as size-1 dimensions.
func (g *Graph) Reduce(kind ReduceKind, data, axes *Value, keepDims bool) (*Value, error) {
	op := kind.opKind()
	if op == OpInvalid {
		return nil, errors.Errorf("unknown reduction kind %d", kind)
	}
	if !axes.dtype.IsInteger() {
		return nil, errors.Errorf("%s: axes must be integer-typed, got %s", op, axes.dtype)
	}
	shape, err := reduceShape(data.shape, axes, keepDims)
	if err != nil {
		return nil, errors.WithMessage(err, op.String())
	}
	v := g.newNode(op, data.dtype, shape, data, axes)
	v.node.keepDims = keepDims
	return v, nil
}

func reduceShape(data Shape, axes *Value, keepDims bool) (Shape, error) {
	if !data.HasRank() {
		return DynamicShape(), nil
	}
	r := data.Rank()
	vals, isConst := axes.ConstInt64s()
	if isConst {
		reduced := make(map[int]bool, len(vals))
		for _, a := range vals {
			norm, err := normalizeAxis(a, r)
			if err != nil {
				return Shape{}, err
			}
			reduced[norm] = true
		}
		dims := make([]Dim, 0, r)
		for i := 0; i < r; i++ {
			switch {
			case !reduced[i]:
				dims = append(dims, data.Dim(i))
			case keepDims:
				dims = append(dims, 1)
			}
		}
		return MakeShape(dims...), nil
	}

	// Runtime axes: the positions are unknown, but a static axes shape still
	// pins the output rank.
	if keepDims {
		dims := make([]Dim, r)
		for i := range dims {
			dims[i] = DynamicDim
		}
		return MakeShape(dims...), nil
	}
	n, ok := axes.shape.NumElements()
	if !ok {
		return DynamicShape(), nil
	}
	if n > int64(r) {
		return Shape{}, errors.Errorf("%d reduction axes exceed input rank %d", n, r)
	}
	dims := make([]Dim, int64(r)-n)
	for i := range dims {
		dims[i] = DynamicDim
	}
	return MakeShape(dims...), nil
}

func normalizeAxis(a int64, rank int) (int, error) {
	if a < int64(-rank) || a >= int64(rank) {
		return 0, errors.Errorf("axis %d out of range for rank %d", a, rank)
	}
	if a < 0 {
		a += int64(rank)
	}
	return int(a), nil
}
