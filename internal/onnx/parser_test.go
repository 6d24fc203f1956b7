package onnx

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// pb builds protobuf wire bytes by hand so the parser can be tested
// without a protobuf dependency.
type pb struct {
	data []byte
}

func (b *pb) varint(v uint64) {
	for v >= 0x80 {
		b.data = append(b.data, byte(v)|0x80)
		v >>= 7
	}
	b.data = append(b.data, byte(v))
}

func (b *pb) tag(fieldNum, wireType int) {
	b.varint(uint64(fieldNum)<<3 | uint64(wireType))
}

func (b *pb) int(fieldNum int, v int64) {
	b.tag(fieldNum, 0)
	b.varint(uint64(v))
}

func (b *pb) bytes(fieldNum int, data []byte) {
	b.tag(fieldNum, 2)
	b.varint(uint64(len(data)))
	b.data = append(b.data, data...)
}

func (b *pb) str(fieldNum int, s string) {
	b.bytes(fieldNum, []byte(s))
}

func (b *pb) float(fieldNum int, v float32) {
	b.tag(fieldNum, 5)
	b.data = binary.LittleEndian.AppendUint32(b.data, math.Float32bits(v))
}

func (b *pb) msg(fieldNum int, build func(*pb)) {
	var sub pb
	build(&sub)
	b.bytes(fieldNum, sub.data)
}

func (b *pb) packedInts(fieldNum int, vals ...int64) {
	var sub pb
	for _, v := range vals {
		sub.varint(uint64(v))
	}
	b.bytes(fieldNum, sub.data)
}

func (b *pb) packedFloats(fieldNum int, vals ...float32) {
	var sub pb
	for _, v := range vals {
		sub.data = binary.LittleEndian.AppendUint32(sub.data, math.Float32bits(v))
	}
	b.bytes(fieldNum, sub.data)
}

func (b *pb) packedDoubles(fieldNum int, vals ...float64) {
	var sub pb
	for _, v := range vals {
		sub.data = binary.LittleEndian.AppendUint64(sub.data, math.Float64bits(v))
	}
	b.bytes(fieldNum, sub.data)
}

// testModel wraps a graph in a ModelProto declaring the given default-domain
// opset.
func testModel(opset int64, graph func(*pb)) []byte {
	var b pb
	b.int(1, 8) // ir_version
	b.msg(8, func(op *pb) {
		op.str(1, "")
		op.int(2, opset)
	})
	b.msg(7, graph)
	return b.data
}

func addNode(g *pb, opType string, inputs, outputs []string, attrs func(*pb)) {
	g.msg(1, func(n *pb) {
		for _, in := range inputs {
			n.str(1, in)
		}
		for _, out := range outputs {
			n.str(2, out)
		}
		n.str(4, opType)
		if attrs != nil {
			attrs(n)
		}
	})
}

func addIntAttr(n *pb, name string, v int64) {
	n.msg(5, func(a *pb) {
		a.str(1, name)
		a.int(3, v)
		a.int(20, AttributeProtoInt)
	})
}

func addIntsAttr(n *pb, name string, vals ...int64) {
	n.msg(5, func(a *pb) {
		a.str(1, name)
		a.packedInts(8, vals...)
		a.int(20, AttributeProtoInts)
	})
}

func addValueInfo(g *pb, fieldNum int, name string, elemType int32, dims ...int64) {
	g.msg(fieldNum, func(vi *pb) {
		vi.str(1, name)
		vi.msg(2, func(tp *pb) {
			tp.msg(1, func(tt *pb) {
				tt.int(1, int64(elemType))
				tt.msg(2, func(shape *pb) {
					for _, d := range dims {
						shape.msg(1, func(dim *pb) {
							if d > 0 {
								dim.int(1, d)
							} else {
								dim.str(2, "batch")
							}
						})
					}
				})
			})
		})
	})
}

func addInput(g *pb, name string, elemType int32, dims ...int64) {
	addValueInfo(g, 11, name, elemType, dims...)
}

func addOutput(g *pb, name string, elemType int32, dims ...int64) {
	addValueInfo(g, 12, name, elemType, dims...)
}

func addInitializer(g *pb, name string, dataType int32, dims []int64, raw []byte) {
	g.msg(5, func(t *pb) {
		t.packedInts(1, dims...)
		t.int(2, int64(dataType))
		t.str(8, name)
		t.bytes(9, raw)
	})
}

func int64LE(vals ...int64) []byte {
	out := make([]byte, 0, len(vals)*8)
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint64(out, uint64(v))
	}
	return out
}

func float32LE(vals ...float32) []byte {
	out := make([]byte, 0, len(vals)*4)
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

func buildReduceModel() []byte {
	return testModel(13, func(g *pb) {
		g.str(2, "reduce_test")
		addInput(g, "data", TensorProtoFloat, 2, 3)
		addInitializer(g, "axes", TensorProtoInt64, []int64{1}, int64LE(1))
		addNode(g, "ReduceSum", []string{"data", "axes"}, []string{"reduced"}, func(n *pb) {
			addIntAttr(n, "keepdims", 0)
		})
		addOutput(g, "reduced", TensorProtoFloat, 2)
	})
}

func TestParseReduceModel(t *testing.T) {
	model, err := Parse(buildReduceModel())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if model.IRVersion != 8 {
		t.Errorf("IRVersion = %d, want 8", model.IRVersion)
	}
	if len(model.OpsetImport) != 1 || model.OpsetImport[0].Version != 13 {
		t.Fatalf("OpsetImport = %+v, want one entry at version 13", model.OpsetImport)
	}
	g := model.Graph
	if g == nil {
		t.Fatal("model has no graph")
	}
	if g.Name != "reduce_test" {
		t.Errorf("graph name = %q, want %q", g.Name, "reduce_test")
	}
	if len(g.Nodes) != 1 {
		t.Fatalf("got %d nodes, want 1", len(g.Nodes))
	}
	node := g.Nodes[0]
	if node.OpType != "ReduceSum" {
		t.Errorf("op type = %q, want ReduceSum", node.OpType)
	}
	if len(node.Inputs) != 2 || node.Inputs[0] != "data" || node.Inputs[1] != "axes" {
		t.Errorf("inputs = %v, want [data axes]", node.Inputs)
	}
	if len(node.Outputs) != 1 || node.Outputs[0] != "reduced" {
		t.Errorf("outputs = %v, want [reduced]", node.Outputs)
	}
	if len(g.Inputs) != 1 || g.Inputs[0].Name != "data" {
		t.Errorf("graph inputs = %+v, want [data]", g.Inputs)
	}
	if len(g.Outputs) != 1 || g.Outputs[0].Name != "reduced" {
		t.Errorf("graph outputs = %+v, want [reduced]", g.Outputs)
	}
	if len(g.Initializers) != 1 || g.Initializers[0].Name != "axes" {
		t.Fatalf("initializers = %+v, want [axes]", g.Initializers)
	}
}

func TestParseAttributes(t *testing.T) {
	data := testModel(13, func(g *pb) {
		addInput(g, "x", TensorProtoFloat, 4)
		addNode(g, "ReduceMean", []string{"x"}, []string{"y"}, func(n *pb) {
			addIntsAttr(n, "axes", 0, -1)
			addIntAttr(n, "keepdims", 1)
			n.msg(5, func(a *pb) {
				a.str(1, "scale")
				a.float(2, 2.0)
				a.int(20, AttributeProtoFloat)
			})
			n.msg(5, func(a *pb) {
				a.str(1, "mode")
				a.bytes(4, []byte("constant"))
				a.int(20, AttributeProtoString)
			})
		})
		addOutput(g, "y", TensorProtoFloat, 1)
	})
	model, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	attrs := model.Graph.Nodes[0].Attributes
	if len(attrs) != 4 {
		t.Fatalf("got %d attributes, want 4", len(attrs))
	}
	byName := make(map[string]AttributeProto, len(attrs))
	for _, a := range attrs {
		byName[a.Name] = a
	}

	axes := byName["axes"]
	if axes.Type != AttributeProtoInts {
		t.Errorf("axes type = %d, want %d", axes.Type, AttributeProtoInts)
	}
	if len(axes.Ints) != 2 || axes.Ints[0] != 0 || axes.Ints[1] != -1 {
		t.Errorf("axes ints = %v, want [0 -1]", axes.Ints)
	}

	keepdims := byName["keepdims"]
	if keepdims.Type != AttributeProtoInt || keepdims.I != 1 {
		t.Errorf("keepdims = %+v, want INT 1", keepdims)
	}

	scale := byName["scale"]
	if scale.Type != AttributeProtoFloat || scale.F != 2.0 {
		t.Errorf("scale = %+v, want FLOAT 2.0", scale)
	}

	mode := byName["mode"]
	if mode.Type != AttributeProtoString || string(mode.S) != "constant" {
		t.Errorf("mode = %+v, want STRING constant", mode)
	}
}

// Repeated scalar fields may arrive unpacked, one tag per element. The
// parser has to accept both encodings.
func TestParseUnpackedInts(t *testing.T) {
	data := testModel(13, func(g *pb) {
		addInput(g, "x", TensorProtoFloat, 4)
		addNode(g, "ReduceMax", []string{"x"}, []string{"y"}, func(n *pb) {
			n.msg(5, func(a *pb) {
				a.str(1, "axes")
				a.int(8, 0)
				a.int(8, 1)
				a.int(20, AttributeProtoInts)
			})
		})
		addOutput(g, "y", TensorProtoFloat)
	})
	model, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	axes := model.Graph.Nodes[0].Attributes[0]
	if len(axes.Ints) != 2 || axes.Ints[0] != 0 || axes.Ints[1] != 1 {
		t.Errorf("axes ints = %v, want [0 1]", axes.Ints)
	}
}

func TestParseTensorAttribute(t *testing.T) {
	data := testModel(13, func(g *pb) {
		addNode(g, "Constant", nil, []string{"c"}, func(n *pb) {
			n.msg(5, func(a *pb) {
				a.str(1, "value")
				a.msg(5, func(tp *pb) {
					tp.packedInts(1, 2)
					tp.int(2, int64(TensorProtoInt64))
					tp.bytes(9, int64LE(3, 7))
				})
				a.int(20, AttributeProtoTensor)
			})
		})
		addOutput(g, "c", TensorProtoInt64, 2)
	})
	model, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	attr := model.Graph.Nodes[0].Attributes[0]
	if attr.Type != AttributeProtoTensor {
		t.Fatalf("attribute type = %d, want %d", attr.Type, AttributeProtoTensor)
	}
	if attr.T == nil {
		t.Fatal("tensor attribute has no tensor")
	}
	if attr.T.DataType != TensorProtoInt64 {
		t.Errorf("tensor data type = %d, want %d", attr.T.DataType, TensorProtoInt64)
	}
	if len(attr.T.Dims) != 1 || attr.T.Dims[0] != 2 {
		t.Errorf("tensor dims = %v, want [2]", attr.T.Dims)
	}
	if len(attr.T.RawData) != 16 {
		t.Errorf("raw data length = %d, want 16", len(attr.T.RawData))
	}
}

func TestParseInitializerData(t *testing.T) {
	data := testModel(13, func(g *pb) {
		addInitializer(g, "raw", TensorProtoFloat, []int64{2}, float32LE(1.5, -2))
		g.msg(5, func(tp *pb) {
			tp.packedInts(1, 3)
			tp.int(2, int64(TensorProtoFloat))
			tp.packedFloats(4, 0.5, 1, 2)
			tp.str(8, "floats")
		})
		g.msg(5, func(tp *pb) {
			tp.packedInts(1, 2)
			tp.int(2, int64(TensorProtoInt32))
			tp.packedInts(5, 6, -7)
			tp.str(8, "ints32")
		})
		g.msg(5, func(tp *pb) {
			tp.packedInts(1, 1)
			tp.int(2, int64(TensorProtoDouble))
			tp.packedDoubles(10, 0.25)
			tp.str(8, "doubles")
		})
		g.msg(5, func(tp *pb) {
			tp.packedInts(1, 1)
			tp.int(2, int64(TensorProtoUint64))
			tp.packedInts(11, 9)
			tp.str(8, "uints64")
		})
	})
	model, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	inits := model.Graph.Initializers
	if len(inits) != 5 {
		t.Fatalf("got %d initializers, want 5", len(inits))
	}
	byName := make(map[string]TensorProto, len(inits))
	for _, tp := range inits {
		byName[tp.Name] = tp
	}

	raw := byName["raw"]
	if len(raw.RawData) != 8 {
		t.Errorf("raw data length = %d, want 8", len(raw.RawData))
	}

	floats := byName["floats"]
	if len(floats.FloatData) != 3 || floats.FloatData[0] != 0.5 || floats.FloatData[2] != 2 {
		t.Errorf("float data = %v, want [0.5 1 2]", floats.FloatData)
	}

	ints32 := byName["ints32"]
	if len(ints32.Int32Data) != 2 || ints32.Int32Data[0] != 6 || ints32.Int32Data[1] != -7 {
		t.Errorf("int32 data = %v, want [6 -7]", ints32.Int32Data)
	}

	doubles := byName["doubles"]
	if len(doubles.DoubleData) != 1 || doubles.DoubleData[0] != 0.25 {
		t.Errorf("double data = %v, want [0.25]", doubles.DoubleData)
	}

	uints64 := byName["uints64"]
	if len(uints64.Uint64Data) != 1 || uints64.Uint64Data[0] != 9 {
		t.Errorf("uint64 data = %v, want [9]", uints64.Uint64Data)
	}
}

func TestParseValueInfo(t *testing.T) {
	data := testModel(13, func(g *pb) {
		addInput(g, "x", TensorProtoFloat, 0, 128)
		addOutput(g, "y", TensorProtoFloat, 0, 128)
	})
	model, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	in := model.Graph.Inputs[0]
	if in.Type == nil || in.Type.TensorType == nil || in.Type.TensorType.Shape == nil {
		t.Fatal("input has no tensor shape")
	}
	dims := in.Type.TensorType.Shape.Dims
	if len(dims) != 2 {
		t.Fatalf("got %d dims, want 2", len(dims))
	}
	if dims[0].DimParam != "batch" || dims[0].DimValue != 0 {
		t.Errorf("dim 0 = %+v, want symbolic batch", dims[0])
	}
	if dims[1].DimValue != 128 || dims[1].DimParam != "" {
		t.Errorf("dim 1 = %+v, want 128", dims[1])
	}
	if in.Type.TensorType.ElemType != TensorProtoFloat {
		t.Errorf("elem type = %d, want %d", in.Type.TensorType.ElemType, TensorProtoFloat)
	}
}

func TestParseMetadata(t *testing.T) {
	var b pb
	b.int(1, 8)
	b.str(2, "pytorch")
	b.str(3, "2.1.0")
	b.msg(8, func(op *pb) {
		op.str(1, "")
		op.int(2, 17)
	})
	b.msg(7, func(g *pb) {
		g.str(2, "meta")
	})
	b.msg(14, func(kv *pb) {
		kv.str(1, "converted_by")
		kv.str(2, "exporter")
	})
	model, err := Parse(b.data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if model.ProducerName != "pytorch" || model.ProducerVersion != "2.1.0" {
		t.Errorf("producer = %q %q, want pytorch 2.1.0", model.ProducerName, model.ProducerVersion)
	}
	if len(model.MetadataProps) != 1 {
		t.Fatalf("got %d metadata entries, want 1", len(model.MetadataProps))
	}
	kv := model.MetadataProps[0]
	if kv.Key != "converted_by" || kv.Value != "exporter" {
		t.Errorf("metadata = %+v, want converted_by=exporter", kv)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.onnx")
	if err := os.WriteFile(path, buildReduceModel(), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	model, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if model.Graph == nil || model.Graph.Name != "reduce_test" {
		t.Errorf("unexpected graph: %+v", model.Graph)
	}
}

func TestParseMissingFile(t *testing.T) {
	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.onnx")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseTruncated(t *testing.T) {
	data := buildReduceModel()
	if _, err := Parse(data[:len(data)-4]); err == nil {
		t.Error("expected error for truncated model")
	}
}

func TestParseEmpty(t *testing.T) {
	model, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) failed: %v", err)
	}
	if model.IRVersion != 0 || model.Graph != nil {
		t.Errorf("empty input produced %+v, want zero model", model)
	}
}
