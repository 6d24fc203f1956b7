package onnx

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/kiln-ml/kiln/internal/ir"
	"github.com/kiln-ml/kiln/internal/onnx/operators"
	"github.com/kiln-ml/kiln/internal/parallel"
)

// ImportOptions configures graph construction.
type ImportOptions struct {
	// OpsetVersion overrides the opset version declared by the model.
	OpsetVersion int64

	// SkipUnsupported lowers operators without a registered translator to
	// opaque placeholder values instead of failing the import.
	SkipUnsupported bool
}

// DefaultImportOptions returns the default (strict) import options.
func DefaultImportOptions() ImportOptions {
	return ImportOptions{}
}

// ImportFile parses an ONNX model from a file and lowers it to an IR graph.
//
// Example:
//
//	graph, err := onnx.ImportFile("model.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(graph)
func ImportFile(path string, opts ...ImportOptions) (*ir.Graph, error) {
	proto, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return Import(proto, opts...)
}

// ImportBytes parses an ONNX model from serialized bytes and lowers it to an
// IR graph.
func ImportBytes(data []byte, opts ...ImportOptions) (*ir.Graph, error) {
	proto, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Import(proto, opts...)
}

// Import lowers a parsed model to an IR graph: initializers become constants,
// declared inputs become graph inputs with partial shapes, and every node is
// handed to its registered translator under the model's opset version. The
// first node that fails to translate aborts the import.
func Import(model *ModelProto, opts ...ImportOptions) (*ir.Graph, error) {
	opt := DefaultImportOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}

	gp := model.Graph
	if gp == nil {
		return nil, errors.New("model has no graph")
	}

	opset := opt.OpsetVersion
	if opset == 0 {
		declared, ok := declaredOpset(model)
		if !ok {
			return nil, errors.New("model declares no opset for the default domain")
		}
		opset = declared
	}

	imp := &importer{
		graph:    ir.NewGraph(gp.Name),
		registry: operators.NewRegistry(),
		values:   make(map[string]*ir.Value),
		declared: declarations(gp),
		opset:    opset,
		opt:      opt,
	}
	if err := imp.addInitializers(gp.Initializers); err != nil {
		return nil, err
	}
	if err := imp.addInputs(gp.Inputs); err != nil {
		return nil, err
	}
	if err := imp.lowerNodes(gp.Nodes); err != nil {
		return nil, err
	}
	if err := imp.markOutputs(gp.Outputs); err != nil {
		return nil, err
	}
	return imp.graph, nil
}

// declaredOpset returns the opset version the model imports for the default
// operator domain.
func declaredOpset(model *ModelProto) (int64, bool) {
	for _, opset := range model.OpsetImport {
		if opset.Domain == "" || opset.Domain == "ai.onnx" {
			return opset.Version, true
		}
	}
	return 0, false
}

// importer carries the state of one graph construction pass. Each import gets
// its own registry and value table.
type importer struct {
	graph    *ir.Graph
	registry *operators.Registry
	values   map[string]*ir.Value       // tensor name -> value that produces it
	declared map[string]*ValueInfoProto // tensor name -> declared type, if any
	opset    int64
	opt      ImportOptions
}

// declarations indexes the type declarations the model carries for values
// other than graph inputs: intermediate value_info entries and the graph
// outputs.
func declarations(gp *GraphProto) map[string]*ValueInfoProto {
	m := make(map[string]*ValueInfoProto, len(gp.ValueInfo)+len(gp.Outputs))
	for i := range gp.ValueInfo {
		m[gp.ValueInfo[i].Name] = &gp.ValueInfo[i]
	}
	for i := range gp.Outputs {
		m[gp.Outputs[i].Name] = &gp.Outputs[i]
	}
	return m
}

// addInitializers decodes weight tensors in parallel, then appends them as
// constants in file order so node ids stay deterministic.
func (imp *importer) addInitializers(inits []TensorProto) error {
	decoded := make([]*operators.Tensor, len(inits))
	err := parallel.ForErr(len(inits), func(i int) error {
		t, err := decodeTensor(&inits[i])
		if err != nil {
			return errors.WithMessagef(err, "initializer %s", inits[i].Name)
		}
		decoded[i] = t
		return nil
	}, parallel.CoarseConfig())
	if err != nil {
		return err
	}

	for i, t := range decoded {
		v, err := imp.graph.Constant(t.DType, t.Shape, t.Raw)
		if err != nil {
			return errors.WithMessagef(err, "initializer %s", inits[i].Name)
		}
		imp.values[inits[i].Name] = v
	}
	return nil
}

// addInputs appends graph inputs, skipping names already bound to
// initializer constants.
func (imp *importer) addInputs(inputs []ValueInfoProto) error {
	for i := range inputs {
		vi := &inputs[i]
		if _, ok := imp.values[vi.Name]; ok {
			continue
		}
		dtype, shape, err := valueType(vi)
		if err != nil {
			return errors.WithMessagef(err, "graph input %s", vi.Name)
		}
		imp.values[vi.Name] = imp.graph.Input(vi.Name, dtype, shape)
	}
	return nil
}

// lowerNodes translates every node in dependency order.
func (imp *importer) lowerNodes(nodes []NodeProto) error {
	for _, idx := range topologicalOrder(nodes) {
		if err := imp.lowerNode(&nodes[idx], idx); err != nil {
			return err
		}
	}
	return nil
}

func (imp *importer) lowerNode(np *NodeProto, idx int) error {
	label := np.Name
	if label == "" {
		label = fmt.Sprintf("#%d", idx)
	}

	inputs := make([]*ir.Value, len(np.Inputs))
	for i, name := range np.Inputs {
		if name == "" {
			continue // omitted optional input
		}
		v, ok := imp.values[name]
		if !ok {
			return errors.Errorf("node %s (%s): input %s is not defined", label, np.OpType, name)
		}
		inputs[i] = v
	}

	attrs, err := convertAttributes(np.Attributes)
	if err != nil {
		return errors.WithMessagef(err, "node %s (%s)", label, np.OpType)
	}

	node := operators.NewNode(imp.graph, np.OpType, np.Name, imp.opset, inputs, attrs)
	outs, err := imp.registry.Translate(node)
	switch {
	case err == nil:
	case imp.opt.SkipUnsupported && operators.CodeOf(err) == operators.CodeNoTranslator:
		outs = make([]*ir.Value, len(np.Outputs))
		for i, name := range np.Outputs {
			outs[i] = imp.graph.Opaque(imp.opaqueType(name))
		}
	default:
		return errors.WithMessagef(err, "node %s", label)
	}

	for i, name := range np.Outputs {
		if name == "" || i >= len(outs) {
			continue
		}
		imp.values[name] = outs[i]
	}
	return nil
}

// markOutputs binds graph outputs by name.
func (imp *importer) markOutputs(outputs []ValueInfoProto) error {
	for i := range outputs {
		name := outputs[i].Name
		v, ok := imp.values[name]
		if !ok {
			return errors.Errorf("graph output %s is not produced by any node", name)
		}
		imp.graph.AddOutput(v)
	}
	return nil
}

// topologicalOrder returns node indices such that every producer precedes its
// consumers. Nodes that are already ordered come back unchanged.
func topologicalOrder(nodes []NodeProto) []int {
	producer := make(map[string]int)
	for i := range nodes {
		for _, out := range nodes[i].Outputs {
			producer[out] = i
		}
	}

	visited := make([]bool, len(nodes))
	order := make([]int, 0, len(nodes))
	var visit func(int)
	visit = func(i int) {
		if visited[i] {
			return
		}
		visited[i] = true
		for _, in := range nodes[i].Inputs {
			if dep, ok := producer[in]; ok {
				visit(dep)
			}
		}
		order = append(order, i)
	}
	for i := range nodes {
		visit(i)
	}
	return order
}

// convertAttributes mirrors proto attributes into the translators' view,
// decoding embedded tensor payloads.
func convertAttributes(protos []AttributeProto) ([]operators.Attribute, error) {
	if len(protos) == 0 {
		return nil, nil
	}
	attrs := make([]operators.Attribute, len(protos))
	for i := range protos {
		ap := &protos[i]
		attrs[i] = operators.Attribute{
			Name:    ap.Name,
			Type:    ap.Type,
			F:       ap.F,
			I:       ap.I,
			S:       ap.S,
			Floats:  ap.Floats,
			Ints:    ap.Ints,
			Strings: ap.Strings,
		}
		if ap.T != nil {
			t, err := decodeTensor(ap.T)
			if err != nil {
				return nil, errors.WithMessagef(err, "attribute %s", ap.Name)
			}
			attrs[i].T = t
		}
	}
	return attrs, nil
}

// opaqueType returns the element type and partial shape the model declares
// for a value, for placeholders whose producer was skipped. Values the model
// says nothing usable about stay untyped with unknown shape.
func (imp *importer) opaqueType(name string) (ir.DataType, ir.Shape) {
	vi, ok := imp.declared[name]
	if !ok {
		return ir.Invalid, ir.DynamicShape()
	}
	dtype, shape, err := valueType(vi)
	if err != nil {
		return ir.Invalid, ir.DynamicShape()
	}
	return dtype, shape
}

// valueType extracts element type and partial shape from a value declaration.
// A missing shape means unknown rank; a dimension with a symbolic name or no
// static extent becomes DynamicDim.
func valueType(vi *ValueInfoProto) (ir.DataType, ir.Shape, error) {
	if vi.Type == nil || vi.Type.TensorType == nil {
		return ir.Invalid, ir.Shape{}, errors.New("no tensor type declared")
	}
	tt := vi.Type.TensorType
	dtype, err := dataTypeOf(tt.ElemType)
	if err != nil {
		return ir.Invalid, ir.Shape{}, err
	}
	if tt.Shape == nil {
		return dtype, ir.DynamicShape(), nil
	}
	dims := make([]ir.Dim, len(tt.Shape.Dims))
	for i := range tt.Shape.Dims {
		d := &tt.Shape.Dims[i]
		if d.DimParam == "" && d.DimValue > 0 {
			dims[i] = ir.Dim(d.DimValue)
		} else {
			dims[i] = ir.DynamicDim
		}
	}
	return dtype, ir.MakeShape(dims...), nil
}

// dataTypeOf maps an ONNX element type onto the IR element type. Types the
// lowering cannot represent are rejected rather than silently coerced.
func dataTypeOf(onnxType int32) (ir.DataType, error) {
	switch onnxType {
	case TensorProtoFloat:
		return ir.Float32, nil
	case TensorProtoDouble:
		return ir.Float64, nil
	case TensorProtoFloat16:
		return ir.Float16, nil
	case TensorProtoBfloat16:
		return ir.BFloat16, nil
	case TensorProtoInt32:
		return ir.Int32, nil
	case TensorProtoInt64:
		return ir.Int64, nil
	case TensorProtoUint8:
		return ir.Uint8, nil
	case TensorProtoUint32:
		return ir.Uint32, nil
	case TensorProtoUint64:
		return ir.Uint64, nil
	case TensorProtoBool:
		return ir.Bool, nil
	default:
		return ir.Invalid, errors.Errorf("unsupported tensor element type %d", onnxType)
	}
}

// decodeTensor converts a TensorProto into element type, static shape, and a
// little-endian payload, from whichever data field the writer populated.
func decodeTensor(tp *TensorProto) (*operators.Tensor, error) {
	dtype, err := dataTypeOf(tp.DataType)
	if err != nil {
		return nil, err
	}
	raw, err := tensorPayload(tp, dtype)
	if err != nil {
		return nil, err
	}
	return &operators.Tensor{DType: dtype, Shape: ir.Static(tp.Dims...), Raw: raw}, nil
}

// tensorPayload returns the element bytes. The typed data fields are mutually
// exclusive with raw_data.
func tensorPayload(tp *TensorProto, dtype ir.DataType) ([]byte, error) {
	switch {
	case len(tp.RawData) > 0:
		return tp.RawData, nil
	case len(tp.FloatData) > 0:
		return encodeFloat32s(tp.FloatData), nil
	case len(tp.Int32Data) > 0:
		return encodeInt32Elements(tp.Int32Data, dtype)
	case len(tp.Int64Data) > 0:
		return encodeInt64s(tp.Int64Data), nil
	case len(tp.DoubleData) > 0:
		return encodeFloat64s(tp.DoubleData), nil
	case len(tp.Uint64Data) > 0:
		return encodeUint64Elements(tp.Uint64Data, dtype)
	default:
		return nil, nil
	}
}

// elementConfig tunes element-conversion loops: large weight tensors fan out
// across workers, small ones stay sequential.
func elementConfig() parallel.Config {
	cfg := parallel.DefaultConfig()
	cfg.MinChunkSize = 4096
	return cfg
}

// encodeFloat32s writes float32 elements as little-endian bytes.
func encodeFloat32s(vals []float32) []byte {
	out := make([]byte, 4*len(vals))
	parallel.For(len(vals), func(i int) {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(vals[i]))
	}, elementConfig())
	return out
}

// encodeInt64s writes int64 elements as little-endian bytes.
func encodeInt64s(vals []int64) []byte {
	out := make([]byte, 8*len(vals))
	parallel.For(len(vals), func(i int) {
		binary.LittleEndian.PutUint64(out[8*i:], uint64(vals[i])) //nolint:gosec // G115: reinterpreting sign bits
	}, elementConfig())
	return out
}

// encodeFloat64s writes float64 elements as little-endian bytes.
func encodeFloat64s(vals []float64) []byte {
	out := make([]byte, 8*len(vals))
	parallel.For(len(vals), func(i int) {
		binary.LittleEndian.PutUint64(out[8*i:], math.Float64bits(vals[i]))
	}, elementConfig())
	return out
}

// encodeInt32Elements writes int32_data entries at the width of the target
// element type: ONNX stores uint8, bool, float16 and bfloat16 payloads one
// element per int32 entry.
func encodeInt32Elements(vals []int32, dtype ir.DataType) ([]byte, error) {
	switch dtype {
	case ir.Int32:
		out := make([]byte, 4*len(vals))
		parallel.For(len(vals), func(i int) {
			binary.LittleEndian.PutUint32(out[4*i:], uint32(vals[i])) //nolint:gosec // G115: reinterpreting sign bits
		}, elementConfig())
		return out, nil
	case ir.Float16, ir.BFloat16:
		out := make([]byte, 2*len(vals))
		parallel.For(len(vals), func(i int) {
			binary.LittleEndian.PutUint16(out[2*i:], uint16(vals[i])) //nolint:gosec // G115: low 16 bits hold the element
		}, elementConfig())
		return out, nil
	case ir.Uint8, ir.Bool:
		out := make([]byte, len(vals))
		parallel.For(len(vals), func(i int) {
			out[i] = byte(vals[i])
		}, elementConfig())
		return out, nil
	default:
		return nil, errors.Errorf("int32_data cannot hold %s elements", dtype)
	}
}

// encodeUint64Elements writes uint64_data entries at the width of the target
// element type; ONNX stores uint32 payloads one element per uint64 entry.
func encodeUint64Elements(vals []uint64, dtype ir.DataType) ([]byte, error) {
	switch dtype {
	case ir.Uint64:
		out := make([]byte, 8*len(vals))
		parallel.For(len(vals), func(i int) {
			binary.LittleEndian.PutUint64(out[8*i:], vals[i])
		}, elementConfig())
		return out, nil
	case ir.Uint32:
		out := make([]byte, 4*len(vals))
		parallel.For(len(vals), func(i int) {
			binary.LittleEndian.PutUint32(out[4*i:], uint32(vals[i])) //nolint:gosec // G115: low 32 bits hold the element
		}, elementConfig())
		return out, nil
	default:
		return nil, errors.Errorf("uint64_data cannot hold %s elements", dtype)
	}
}
