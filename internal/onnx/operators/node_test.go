package operators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ml/kiln/internal/ir"
)

func TestNodeDescription(t *testing.T) {
	g := ir.NewGraph("t")
	named := NewNode(g, "ReduceSum", "loss_sum", 13, nil, nil)
	assert.Equal(t, `ReduceSum node "loss_sum"`, named.Description())

	anon := NewNode(g, "ReduceMax", "", 13, nil, nil)
	assert.Equal(t, "ReduceMax node", anon.Description())
}

func TestNodeInputs(t *testing.T) {
	g := ir.NewGraph("t")
	a := g.Input("a", ir.Float32, ir.Static(1))
	node := NewNode(g, "Op", "", 13, []*ir.Value{a, nil}, nil)

	assert.Equal(t, 2, node.NumInputs())

	got, err := node.Input(0)
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = node.Input(1)
	require.Error(t, err, "omitted slot")
	assert.Equal(t, CodeMissingInput, CodeOf(err))

	_, err = node.Input(2)
	require.Error(t, err, "out of range")
	assert.Equal(t, CodeMissingInput, CodeOf(err))

	v, ok := node.OptionalInput(0)
	assert.True(t, ok)
	assert.Same(t, a, v)
	_, ok = node.OptionalInput(1)
	assert.False(t, ok)
	_, ok = node.OptionalInput(5)
	assert.False(t, ok)
}

func TestNodeAttrDefaults(t *testing.T) {
	g := ir.NewGraph("t")
	node := NewNode(g, "Op", "", 13, nil, nil)

	i, err := node.IntAttr("keepdims", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), i)

	is, err := node.IntsAttr("axes")
	require.NoError(t, err)
	assert.Nil(t, is)

	f, err := node.FloatAttr("alpha", 0.5)
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), f)

	s, err := node.StrAttr("mode", "constant")
	require.NoError(t, err)
	assert.Equal(t, "constant", s)

	tensor, err := node.TensorAttr("value")
	require.NoError(t, err)
	assert.Nil(t, tensor)

	assert.False(t, node.HasAttr("keepdims"))
}

func TestNodeAttrValues(t *testing.T) {
	g := ir.NewGraph("t")
	node := NewNode(g, "Op", "", 13, nil, []Attribute{
		{Name: "keepdims", Type: AttrTypeInt, I: 0},
		{Name: "axes", Type: AttrTypeInts, Ints: []int64{0, -1}},
		{Name: "alpha", Type: AttrTypeFloat, F: 2.5},
		{Name: "mode", Type: AttrTypeString, S: []byte("edge")},
		{Name: "scales", Type: AttrTypeFloats, Floats: []float32{1, 2}},
		{Name: "value", Type: AttrTypeTensor, T: &Tensor{DType: ir.Int64, Shape: ir.Static(1), Raw: []byte{7, 0, 0, 0, 0, 0, 0, 0}}},
	})

	i, err := node.IntAttr("keepdims", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), i)

	is, err := node.IntsAttr("axes")
	require.NoError(t, err)
	assert.Equal(t, []int64{0, -1}, is)

	f, err := node.FloatAttr("alpha", 0)
	require.NoError(t, err)
	assert.Equal(t, float32(2.5), f)

	s, err := node.StrAttr("mode", "")
	require.NoError(t, err)
	assert.Equal(t, "edge", s)

	fs, err := node.FloatsAttr("scales")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, fs)

	tensor, err := node.TensorAttr("value")
	require.NoError(t, err)
	require.NotNil(t, tensor)
	assert.Equal(t, ir.Int64, tensor.DType)

	assert.True(t, node.HasAttr("axes"))
}

func TestNodeAttrTypeMismatch(t *testing.T) {
	g := ir.NewGraph("t")
	node := NewNode(g, "ReduceSum", "bad", 13, nil, []Attribute{
		{Name: "keepdims", Type: AttrTypeFloat, F: 1},
	})

	_, err := node.IntAttr("keepdims", 1)
	require.Error(t, err)
	assert.Equal(t, CodeAttributeTypeMismatch, CodeOf(err))
	assert.Contains(t, err.Error(), "FLOAT")
	assert.Contains(t, err.Error(), "INT")
	assert.Contains(t, err.Error(), `ReduceSum node "bad"`)
}

func TestErrorFormatting(t *testing.T) {
	withNode := &Error{Code: CodeUnsupportedType, Node: "ReduceSum node", Message: "boom"}
	assert.Equal(t, "unsupported_type: ReduceSum node: boom", withNode.Error())

	bare := &Error{Code: CodeNoTranslator, Message: "nope"}
	assert.Equal(t, "no_translator: nope", bare.Error())

	assert.Equal(t, ErrorCode(""), CodeOf(nil))
	assert.Equal(t, ErrorCode(""), CodeOf(assert.AnError))
}
