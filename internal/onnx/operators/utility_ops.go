package operators

import (
	"github.com/pkg/errors"

	"github.com/kiln-ml/kiln/internal/ir"
)

// registerUtilityOps adds structural operators to the registry. Squeeze went
// through the same axes-to-input migration as ReduceSum, at the same opset
// boundary.
func (r *Registry) registerUtilityOps() {
	r.Register("Identity", 1, 0, translateIdentity)
	r.Register("Constant", 1, 0, translateConstant)
	r.Register("Shape", 1, 0, translateShape)
	r.Register("Squeeze", 1, 12, translateSqueezeV1)
	r.Register("Squeeze", 13, 0, translateSqueezeV13)
}

// translateIdentity aliases the input; no IR node is created.
func translateIdentity(node *Node) ([]*ir.Value, error) {
	data, err := node.Input(0)
	if err != nil {
		return nil, err
	}
	return []*ir.Value{data}, nil
}

func translateConstant(node *Node) ([]*ir.Value, error) {
	g := node.Graph()
	switch {
	case node.HasAttr("value"):
		t, err := node.TensorAttr("value")
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, errors.Errorf("%s: value attribute carries no tensor", node.Description())
		}
		v, err := g.Constant(t.DType, t.Shape, t.Raw)
		if err != nil {
			return nil, errors.WithMessage(err, node.Description())
		}
		return []*ir.Value{v}, nil
	case node.HasAttr("value_float"):
		f, err := node.FloatAttr("value_float", 0)
		if err != nil {
			return nil, err
		}
		return []*ir.Value{g.ScalarFloat32(f)}, nil
	case node.HasAttr("value_int"):
		i, err := node.IntAttr("value_int", 0)
		if err != nil {
			return nil, err
		}
		return []*ir.Value{g.ScalarInt64(i)}, nil
	case node.HasAttr("value_floats"):
		fs, err := node.FloatsAttr("value_floats")
		if err != nil {
			return nil, err
		}
		return []*ir.Value{g.Float32Vector(fs...)}, nil
	case node.HasAttr("value_ints"):
		is, err := node.IntsAttr("value_ints")
		if err != nil {
			return nil, err
		}
		return []*ir.Value{g.Int64Vector(is...)}, nil
	default:
		return nil, errors.Errorf("%s: no value attribute found", node.Description())
	}
}

// translateShape queries the runtime shape as an int64 vector. The start/end
// slicing attributes from opset 15 are not lowered.
func translateShape(node *Node) ([]*ir.Value, error) {
	data, err := node.Input(0)
	if err != nil {
		return nil, err
	}
	if node.HasAttr("start") || node.HasAttr("end") {
		return nil, errors.Errorf("%s: start/end attributes are not supported", node.Description())
	}
	return []*ir.Value{node.Graph().ShapeOf(data)}, nil
}

// translateSqueezeV1 reads axes from the attribute; an absent attribute
// removes every size-1 dimension.
func translateSqueezeV1(node *Node) ([]*ir.Value, error) {
	data, err := node.Input(0)
	if err != nil {
		return nil, err
	}
	axes, err := node.IntsAttr("axes")
	if err != nil {
		return nil, err
	}
	out, err := node.Graph().Squeeze(data, node.Graph().Int64Vector(axes...))
	if err != nil {
		return nil, errors.WithMessage(err, node.Description())
	}
	return []*ir.Value{out}, nil
}

// translateSqueezeV13 reads axes from the optional second input.
func translateSqueezeV13(node *Node) ([]*ir.Value, error) {
	data, err := node.Input(0)
	if err != nil {
		return nil, err
	}
	axes, ok := node.OptionalInput(1)
	if !ok {
		axes = node.Graph().Int64Vector()
	}
	out, err := node.Graph().Squeeze(data, axes)
	if err != nil {
		return nil, errors.WithMessage(err, node.Description())
	}
	return []*ir.Value{out}, nil
}
