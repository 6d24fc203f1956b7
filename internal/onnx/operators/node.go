package operators

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/ir"
)

// ONNX attribute payload types (AttributeProto.AttributeType).
const (
	AttrTypeUndefined int32 = 0
	AttrTypeFloat     int32 = 1
	AttrTypeInt       int32 = 2
	AttrTypeString    int32 = 3
	AttrTypeTensor    int32 = 4
	AttrTypeGraph     int32 = 5
	AttrTypeFloats    int32 = 6
	AttrTypeInts      int32 = 7
	AttrTypeStrings   int32 = 8
)

func attrTypeName(t int32) string {
	switch t {
	case AttrTypeFloat:
		return "FLOAT"
	case AttrTypeInt:
		return "INT"
	case AttrTypeString:
		return "STRING"
	case AttrTypeTensor:
		return "TENSOR"
	case AttrTypeGraph:
		return "GRAPH"
	case AttrTypeFloats:
		return "FLOATS"
	case AttrTypeInts:
		return "INTS"
	case AttrTypeStrings:
		return "STRINGS"
	default:
		return fmt.Sprintf("type(%d)", t)
	}
}

// Attribute is a named, typed payload attached to a source node. It is a
// local mirror of the relevant AttributeProto fields so this package does not
// depend on the exchange-format decoder.
type Attribute struct {
	Name    string
	Type    int32
	F       float32
	I       int64
	S       []byte
	T       *Tensor
	Floats  []float32
	Ints    []int64
	Strings [][]byte
}

// Tensor is a decoded constant payload carried by a TENSOR attribute:
// little-endian elements in row-major order.
type Tensor struct {
	DType ir.DataType
	Shape ir.Shape
	Raw   []byte
}

// Node is the read-only view of one source operator handed to a translator:
// resolved input values, attributes, the opset version in force, and the IR
// graph under construction.
type Node struct {
	graph  *ir.Graph
	opType string
	name   string
	opset  int64
	inputs []*ir.Value
	attrs  []Attribute
}

// NewNode builds a translator view. Omitted optional input slots are nil
// entries in inputs.
func NewNode(graph *ir.Graph, opType, name string, opset int64, inputs []*ir.Value, attrs []Attribute) *Node {
	return &Node{
		graph:  graph,
		opType: opType,
		name:   name,
		opset:  opset,
		inputs: inputs,
		attrs:  attrs,
	}
}

// Graph returns the IR graph the translation appends to.
func (n *Node) Graph() *ir.Graph { return n.graph }

// OpType returns the source operator type, e.g. "ReduceSum".
func (n *Node) OpType() string { return n.opType }

// Name returns the source node name, possibly empty.
func (n *Node) Name() string { return n.name }

// OpsetVersion returns the opset version the node is interpreted under.
func (n *Node) OpsetVersion() int64 { return n.opset }

// Description identifies the node in diagnostics.
func (n *Node) Description() string {
	if n.name != "" {
		return fmt.Sprintf("%s node %q", n.opType, n.name)
	}
	return fmt.Sprintf("%s node", n.opType)
}

// NumInputs returns the number of input slots, including omitted ones.
func (n *Node) NumInputs() int { return len(n.inputs) }

// Inputs returns the input values; omitted optional slots are nil.
func (n *Node) Inputs() []*ir.Value {
	out := make([]*ir.Value, len(n.inputs))
	copy(out, n.inputs)
	return out
}

// Input returns the i-th input value, failing when the slot is absent or was
// omitted.
func (n *Node) Input(i int) (*ir.Value, error) {
	if i >= len(n.inputs) || n.inputs[i] == nil {
		return nil, &Error{
			Code:    CodeMissingInput,
			Node:    n.Description(),
			Message: fmt.Sprintf("input %d is required", i),
		}
	}
	return n.inputs[i], nil
}

// OptionalInput returns the i-th input value and whether it was supplied.
func (n *Node) OptionalInput(i int) (*ir.Value, bool) {
	if i >= len(n.inputs) || n.inputs[i] == nil {
		return nil, false
	}
	return n.inputs[i], true
}

func (n *Node) attr(name string) *Attribute {
	for i := range n.attrs {
		if n.attrs[i].Name == name {
			return &n.attrs[i]
		}
	}
	return nil
}

// HasAttr reports whether the named attribute is present.
func (n *Node) HasAttr(name string) bool { return n.attr(name) != nil }

func (n *Node) attrTypeError(a *Attribute, want int32) error {
	return &Error{
		Code:    CodeAttributeTypeMismatch,
		Node:    n.Description(),
		Message: fmt.Sprintf("attribute %q holds %s, requested %s", a.Name, attrTypeName(a.Type), attrTypeName(want)),
	}
}

// IntAttr returns the named INT attribute, or def when absent.
func (n *Node) IntAttr(name string, def int64) (int64, error) {
	a := n.attr(name)
	if a == nil {
		return def, nil
	}
	if a.Type != AttrTypeInt {
		return 0, n.attrTypeError(a, AttrTypeInt)
	}
	return a.I, nil
}

// IntsAttr returns the named INTS attribute, or nil when absent.
func (n *Node) IntsAttr(name string) ([]int64, error) {
	a := n.attr(name)
	if a == nil {
		return nil, nil
	}
	if a.Type != AttrTypeInts {
		return nil, n.attrTypeError(a, AttrTypeInts)
	}
	return a.Ints, nil
}

// FloatAttr returns the named FLOAT attribute, or def when absent.
func (n *Node) FloatAttr(name string, def float32) (float32, error) {
	a := n.attr(name)
	if a == nil {
		return def, nil
	}
	if a.Type != AttrTypeFloat {
		return 0, n.attrTypeError(a, AttrTypeFloat)
	}
	return a.F, nil
}

// FloatsAttr returns the named FLOATS attribute, or nil when absent.
func (n *Node) FloatsAttr(name string) ([]float32, error) {
	a := n.attr(name)
	if a == nil {
		return nil, nil
	}
	if a.Type != AttrTypeFloats {
		return nil, n.attrTypeError(a, AttrTypeFloats)
	}
	return a.Floats, nil
}

// StrAttr returns the named STRING attribute, or def when absent.
func (n *Node) StrAttr(name, def string) (string, error) {
	a := n.attr(name)
	if a == nil {
		return def, nil
	}
	if a.Type != AttrTypeString {
		return "", n.attrTypeError(a, AttrTypeString)
	}
	return string(a.S), nil
}

// TensorAttr returns the named TENSOR attribute, or nil when absent.
func (n *Node) TensorAttr(name string) (*Tensor, error) {
	a := n.attr(name)
	if a == nil {
		return nil, nil
	}
	if a.Type != AttrTypeTensor {
		return nil, n.attrTypeError(a, AttrTypeTensor)
	}
	return a.T, nil
}
