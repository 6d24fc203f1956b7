package ir

import "fmt"

// OpKind enumerates the operation kinds a graph node can have.
type OpKind int

const (
	OpInvalid OpKind = iota
	OpInput
	OpConstant
	OpOpaque
	OpShapeOf
	OpSqueeze
	OpRange
	OpExp
	OpLog
	OpSqrt
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpReduceSum
	OpReduceMean
	OpReduceMin
	OpReduceMax
	OpReduceProd
	OpReduceL1
	OpReduceL2
)

var opKindNames = map[OpKind]string{
	OpInput:      "input",
	OpConstant:   "constant",
	OpOpaque:     "opaque",
	OpShapeOf:    "shape_of",
	OpSqueeze:    "squeeze",
	OpRange:      "range",
	OpExp:        "exp",
	OpLog:        "log",
	OpSqrt:       "sqrt",
	OpAdd:        "add",
	OpSub:        "sub",
	OpMul:        "mul",
	OpDiv:        "div",
	OpReduceSum:  "reduce_sum",
	OpReduceMean: "reduce_mean",
	OpReduceMin:  "reduce_min",
	OpReduceMax:  "reduce_max",
	OpReduceProd: "reduce_prod",
	OpReduceL1:   "reduce_l1",
	OpReduceL2:   "reduce_l2",
}

func (k OpKind) String() string {
	if name, ok := opKindNames[k]; ok {
		return name
	}
	return "invalid"
}

// IsReduction reports whether the kind is one of the typed reduction ops.
func (k OpKind) IsReduction() bool {
	return k >= OpReduceSum && k <= OpReduceL2
}

// ReduceKind tags the arithmetic a reduction node performs.
type ReduceKind int

// Reduction kinds.
const (
	ReduceSum ReduceKind = iota
	ReduceMean
	ReduceMin
	ReduceMax
	ReduceProd
	ReduceL1
	ReduceL2
)

func (k ReduceKind) String() string {
	return k.opKind().String()
}

func (k ReduceKind) opKind() OpKind {
	switch k {
	case ReduceSum:
		return OpReduceSum
	case ReduceMean:
		return OpReduceMean
	case ReduceMin:
		return OpReduceMin
	case ReduceMax:
		return OpReduceMax
	case ReduceProd:
		return OpReduceProd
	case ReduceL1:
		return OpReduceL1
	case ReduceL2:
		return OpReduceL2
	default:
		return OpInvalid
	}
}

// Node is a single operation in a Graph. Nodes are created through the Graph
// constructors and never modified afterwards.
type Node struct {
	id     int
	op     OpKind
	inputs []*Value
	out    *Value

	name     string // OpInput: the graph input name
	keepDims bool   // reduction nodes
	raw      []byte // OpConstant: little-endian element payload
}

// ID returns the node's position in graph creation order.
func (n *Node) ID() int { return n.id }

// Op returns the operation kind.
func (n *Node) Op() OpKind { return n.op }

// Inputs returns a copy of the node's input values.
func (n *Node) Inputs() []*Value {
	out := make([]*Value, len(n.inputs))
	copy(out, n.inputs)
	return out
}

// NumInputs returns the number of input values.
func (n *Node) NumInputs() int { return len(n.inputs) }

// Input returns the i-th input value.
func (n *Node) Input(i int) *Value { return n.inputs[i] }

// Output returns the value the node produces.
func (n *Node) Output() *Value { return n.out }

// Name returns the graph input name for OpInput nodes, "" otherwise.
func (n *Node) Name() string { return n.name }

// KeepDims reports whether a reduction node retains reduced axes as size-1
// dimensions. False for non-reduction nodes.
func (n *Node) KeepDims() bool { return n.keepDims }

// Value is a handle to a tensor produced in the graph under construction.
// Values are immutable once created and owned by the graph that created them.
type Value struct {
	node  *Node
	dtype DataType
	shape Shape
}

// Node returns the producing node.
func (v *Value) Node() *Node { return v.node }

// DType returns the element type.
func (v *Value) DType() DataType { return v.dtype }

// Shape returns the (possibly partial) shape.
func (v *Value) Shape() Shape { return v.shape }

// Op returns the producing node's operation kind.
func (v *Value) Op() OpKind { return v.node.op }

// String formats the value as "%<id>:<dtype><shape>", for diagnostics.
func (v *Value) String() string {
	return fmt.Sprintf("%%%d:%s%s", v.node.id, v.dtype, v.shape)
}
