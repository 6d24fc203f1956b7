package operators

import (
	"github.com/pkg/errors"

	"github.com/kiln-ml/kiln/internal/ir"
)

// registerMathOps adds elementwise math operators to the registry. These are
// version-stable: one open-ended range each.
func (r *Registry) registerMathOps() {
	unary := func(build func(*ir.Graph, *ir.Value) *ir.Value) Translator {
		return func(node *Node) ([]*ir.Value, error) {
			data, err := node.Input(0)
			if err != nil {
				return nil, err
			}
			return []*ir.Value{build(node.Graph(), data)}, nil
		}
	}
	binary := func(build func(*ir.Graph, *ir.Value, *ir.Value) (*ir.Value, error)) Translator {
		return func(node *Node) ([]*ir.Value, error) {
			a, err := node.Input(0)
			if err != nil {
				return nil, err
			}
			b, err := node.Input(1)
			if err != nil {
				return nil, err
			}
			out, err := build(node.Graph(), a, b)
			if err != nil {
				return nil, errors.WithMessage(err, node.Description())
			}
			return []*ir.Value{out}, nil
		}
	}

	r.Register("Exp", 1, 0, unary((*ir.Graph).Exp))
	r.Register("Log", 1, 0, unary((*ir.Graph).Log))
	r.Register("Sqrt", 1, 0, unary((*ir.Graph).Sqrt))
	r.Register("Add", 1, 0, binary((*ir.Graph).Add))
	r.Register("Sub", 1, 0, binary((*ir.Graph).Sub))
	r.Register("Mul", 1, 0, binary((*ir.Graph).Mul))
	r.Register("Div", 1, 0, binary((*ir.Graph).Div))
}
