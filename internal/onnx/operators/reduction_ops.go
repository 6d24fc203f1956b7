package operators

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/kiln-ml/kiln/internal/ir"
)

// Supported element types per opset era. Opset 13 widened the set with
// bfloat16; everything else is unchanged. Initialized once, never mutated.
var (
	reduceTypesV1 = ir.Types(
		ir.Uint32, ir.Uint64, ir.Int32, ir.Int64,
		ir.Float16, ir.Float32, ir.Float64,
	)
	reduceTypesV13 = reduceTypesV1.With(ir.BFloat16)
)

// registerReductionOps adds the reduction family to the registry.
//
// ReduceSum changed conventions at opset 13 (axes moved from attribute to an
// optional second input, noop_with_empty_axes appeared, bfloat16 became
// legal); opset 18 is registered explicitly and keeps the 13-era lowering
// unchanged. The rest of the family stays on 1-era semantics for all
// versions.
func (r *Registry) registerReductionOps() {
	direct := func(kind ir.ReduceKind) Translator {
		return func(node *Node) ([]*ir.Value, error) {
			data, err := node.Input(0)
			if err != nil {
				return nil, err
			}
			out, err := buildReduction(node, kind, data, reduceTypesV1, true)
			if err != nil {
				return nil, err
			}
			return []*ir.Value{out}, nil
		}
	}

	r.Register("ReduceSum", 1, 12, direct(ir.ReduceSum))
	r.Register("ReduceSum", 13, 17, translateReduceSumV13)
	r.Register("ReduceSum", 18, 0, translateReduceSumV13)
	r.Register("ReduceMean", 1, 0, direct(ir.ReduceMean))
	r.Register("ReduceMin", 1, 0, direct(ir.ReduceMin))
	r.Register("ReduceMax", 1, 0, direct(ir.ReduceMax))
	r.Register("ReduceProd", 1, 0, direct(ir.ReduceProd))
	r.Register("ReduceL1", 1, 0, direct(ir.ReduceL1))
	r.Register("ReduceL2", 1, 0, direct(ir.ReduceL2))
	r.Register("ReduceLogSum", 1, 0, translateReduceLogSum)
	r.Register("ReduceLogSumExp", 1, 0, translateReduceLogSumExp)
	r.Register("ReduceSumSquare", 1, 0, translateReduceSumSquare)
}

// axesKind tags the active variant of an axesSpec.
type axesKind int

const (
	axesNone       axesKind = iota // reduction is a no-op, alias the input
	axesFromList                   // compile-time list, becomes an int64 constant
	axesFromValue                  // tensor supplied by the model
	axesAllDynamic                 // 0..rank-1 computed at run time
)

// axesSpec describes where the reduction axes come from. Exactly one variant
// is active per translation.
type axesSpec struct {
	kind  axesKind
	list  []int64
	value *ir.Value
}

// reductionAxesFromAttr resolves axes for the attribute era. An absent or
// empty axes attribute means "reduce everything": a monotonic 0..rank-1 list
// when the rank is known, the dynamic range lowering otherwise. The axis
// count is checked against the rank only when the rank is known; axis values
// are validated later by the reduce node itself.
func reductionAxesFromAttr(node *Node, data *ir.Value) (axesSpec, error) {
	axes, err := node.IntsAttr("axes")
	if err != nil {
		return axesSpec{}, err
	}

	shape := data.Shape()
	if len(axes) == 0 {
		if !shape.HasRank() {
			return axesSpec{kind: axesAllDynamic}, nil
		}
		axes = make([]int64, shape.Rank())
		for i := range axes {
			axes[i] = int64(i)
		}
	}

	if shape.HasRank() && len(axes) > shape.Rank() {
		return axesSpec{}, &Error{
			Code:    CodeAxesRankTooLarge,
			Node:    node.Description(),
			Message: fmt.Sprintf("number of reduction axes (%d) is larger than the input tensor's rank (%d)", len(axes), shape.Rank()),
		}
	}
	return axesSpec{kind: axesFromList, list: axes}, nil
}

// reductionAxesFromInput resolves axes for the 13-era convention, where they
// arrive as an optional second input. The axes values may be computed at run
// time, but the tensor's shape must be static because the axis count fixes
// the subgraph shape. A rank-0 or zero-length axes tensor counts as "no axes
// provided", which turns into either a no-op or the dynamic all-axes range
// depending on noop_with_empty_axes.
func reductionAxesFromInput(node *Node) (axesSpec, error) {
	noop, err := node.IntAttr("noop_with_empty_axes", 0)
	if err != nil {
		return axesSpec{}, err
	}

	if axes, ok := node.OptionalInput(1); ok {
		shape := axes.Shape()
		if !shape.IsStatic() {
			return axesSpec{}, &Error{
				Code:    CodeNonStaticAxesShape,
				Node:    node.Description(),
				Message: "the axes tensor's shape needs to be known (static)",
			}
		}
		if shape.Rank() != 0 && !shape.Equal(ir.Static(0)) {
			return axesSpec{kind: axesFromValue, value: axes}, nil
		}
	}

	if noop != 0 {
		return axesSpec{kind: axesNone}, nil
	}
	return axesSpec{kind: axesAllDynamic}, nil
}

// dynamicAllAxesRange lowers "reduce over every axis" for data whose rank is
// only known at run time: shape-of the shape-of gives the rank as a length-1
// vector, squeezing axis 0 makes it a scalar, and range(0, rank, 1) yields
// the axis list as int64.
func dynamicAllAxesRange(g *ir.Graph, data *ir.Value) (*ir.Value, error) {
	shapeOfData := g.ShapeOf(data)
	squeezeAxes := g.Int32Vector(0)
	rank := g.ShapeOf(shapeOfData)
	rankScalar, err := g.Squeeze(rank, squeezeAxes)
	if err != nil {
		return nil, err
	}
	start := g.ScalarInt32(0)
	step := g.ScalarInt32(1)
	return g.Range(start, rankScalar, step, ir.Int64)
}

func materializeAxes(g *ir.Graph, data *ir.Value, spec axesSpec) (*ir.Value, error) {
	switch spec.kind {
	case axesFromList:
		return g.Int64Vector(spec.list...), nil
	case axesFromValue:
		return spec.value, nil
	case axesAllDynamic:
		return dynamicAllAxesRange(g, data)
	default:
		return nil, errors.Errorf("axes spec kind %d cannot be materialized", spec.kind)
	}
}

// validateElementType rejects unsupported input types. Callers run it before
// appending any IR node, so a failed translation leaves the graph untouched.
func validateElementType(node *Node, data *ir.Value, types ir.TypeSet) error {
	if types.Has(data.DType()) {
		return nil
	}
	return &Error{
		Code:    CodeUnsupportedType,
		Node:    node.Description(),
		Message: fmt.Sprintf("unsupported input type %s, expected one of %s", data.DType(), types),
	}
}

// buildReduction is the shared lowering path for the whole family: read
// keepdims, validate the element type, resolve axes, then append the typed
// reduction node. data is the node's first input except for the composed
// forms, which pre-process it. A resolved no-op returns data unchanged
// without appending anything.
func buildReduction(node *Node, kind ir.ReduceKind, data *ir.Value, types ir.TypeSet, axesFromAttr bool) (*ir.Value, error) {
	keepDims, err := node.IntAttr("keepdims", 1)
	if err != nil {
		return nil, err
	}

	if err := validateElementType(node, data, types); err != nil {
		return nil, err
	}

	var spec axesSpec
	if axesFromAttr {
		spec, err = reductionAxesFromAttr(node, data)
	} else {
		spec, err = reductionAxesFromInput(node)
	}
	if err != nil {
		return nil, err
	}
	if spec.kind == axesNone {
		return data, nil
	}

	axes, err := materializeAxes(node.Graph(), data, spec)
	if err != nil {
		return nil, err
	}
	out, err := node.Graph().Reduce(kind, data, axes, keepDims != 0)
	if err != nil {
		return nil, errors.WithMessage(err, node.Description())
	}
	return out, nil
}

func translateReduceSumV13(node *Node) ([]*ir.Value, error) {
	data, err := node.Input(0)
	if err != nil {
		return nil, err
	}
	out, err := buildReduction(node, ir.ReduceSum, data, reduceTypesV13, false)
	if err != nil {
		return nil, err
	}
	return []*ir.Value{out}, nil
}

func translateReduceLogSum(node *Node) ([]*ir.Value, error) {
	data, err := node.Input(0)
	if err != nil {
		return nil, err
	}
	sum, err := buildReduction(node, ir.ReduceSum, data, reduceTypesV1, true)
	if err != nil {
		return nil, err
	}
	return []*ir.Value{node.Graph().Log(sum)}, nil
}

// translateReduceLogSumExp lowers to log(sum(exp(x))). No max-subtraction
// stability shift is applied before the exponential; large-magnitude inputs
// can overflow, matching the operator's plain decomposition.
func translateReduceLogSumExp(node *Node) ([]*ir.Value, error) {
	data, err := node.Input(0)
	if err != nil {
		return nil, err
	}
	// An unsupported element type must fail before the exp node is appended.
	if err := validateElementType(node, data, reduceTypesV1); err != nil {
		return nil, err
	}
	exp := node.Graph().Exp(data)
	sum, err := buildReduction(node, ir.ReduceSum, exp, reduceTypesV1, true)
	if err != nil {
		return nil, err
	}
	return []*ir.Value{node.Graph().Log(sum)}, nil
}

func translateReduceSumSquare(node *Node) ([]*ir.Value, error) {
	data, err := node.Input(0)
	if err != nil {
		return nil, err
	}
	// As for log-sum-exp: validate before the square node is appended.
	if err := validateElementType(node, data, reduceTypesV1); err != nil {
		return nil, err
	}
	square, err := node.Graph().Mul(data, data)
	if err != nil {
		return nil, errors.WithMessage(err, node.Description())
	}
	sum, err := buildReduction(node, ir.ReduceSum, square, reduceTypesV1, true)
	if err != nil {
		return nil, err
	}
	return []*ir.Value{sum}, nil
}
