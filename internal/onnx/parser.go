package onnx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// ParseFile parses an ONNX model from a file.
//
//nolint:gosec // G304: path is provided by the user, loading it is the point
func ParseFile(path string) (*ModelProto, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data)
}

// Parse parses an ONNX model from serialized protobuf bytes.
func Parse(data []byte) (*ModelProto, error) {
	p := &parser{data: data}
	model := &ModelProto{}
	if err := p.readModelProto(model); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	return model, nil
}

// parser implements a minimal protobuf wire format decoder covering the
// subset of onnx.proto the importer consumes.
type parser struct {
	data []byte
	pos  int
}

// Protobuf wire types.
const (
	wireVarint = 0 // int32, int64, uint32, uint64, sint32, sint64, bool, enum
	wire64Bit  = 1 // fixed64, sfixed64, double
	wireBytes  = 2 // string, bytes, embedded messages, packed repeated fields
	wire32Bit  = 5 // fixed32, sfixed32, float
)

// readModelProto reads a ModelProto message.
//
//nolint:gocognit,gocyclo,cyclop // protobuf parsing is a field-by-field switch
func (p *parser) readModelProto(m *ModelProto) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // ir_version
			m.IRVersion, err = p.readVarint()
		case 2: // producer_name
			m.ProducerName, err = p.readString()
		case 3: // producer_version
			m.ProducerVersion, err = p.readString()
		case 4: // domain
			m.Domain, err = p.readString()
		case 5: // model_version
			m.ModelVersion, err = p.readVarint()
		case 6: // doc_string
			m.DocString, err = p.readString()
		case 7: // graph
			sub, err2 := p.sub()
			if err2 != nil {
				return err2
			}
			m.Graph = &GraphProto{}
			if err2 = sub.readGraphProto(m.Graph); err2 != nil {
				return err2
			}
			continue
		case 8: // opset_import
			sub, err2 := p.sub()
			if err2 != nil {
				return err2
			}
			var opset OperatorSetID
			if err2 = sub.readOperatorSetID(&opset); err2 != nil {
				return err2
			}
			m.OpsetImport = append(m.OpsetImport, opset)
			continue
		case 14: // metadata_props
			sub, err2 := p.sub()
			if err2 != nil {
				return err2
			}
			var entry StringStringEntry
			if err2 = sub.readStringStringEntry(&entry); err2 != nil {
				return err2
			}
			m.MetadataProps = append(m.MetadataProps, entry)
			continue
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readGraphProto reads a GraphProto message.
//
//nolint:gocognit,gocyclo,cyclop // protobuf parsing is a field-by-field switch
func (p *parser) readGraphProto(m *GraphProto) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // node
			sub, err2 := p.sub()
			if err2 != nil {
				return err2
			}
			var node NodeProto
			if err2 = sub.readNodeProto(&node); err2 != nil {
				return err2
			}
			m.Nodes = append(m.Nodes, node)
			continue
		case 2: // name
			m.Name, err = p.readString()
		case 5: // initializer
			sub, err2 := p.sub()
			if err2 != nil {
				return err2
			}
			var tensor TensorProto
			if err2 = sub.readTensorProto(&tensor); err2 != nil {
				return err2
			}
			m.Initializers = append(m.Initializers, tensor)
			continue
		case 10: // doc_string
			m.DocString, err = p.readString()
		case 11: // input
			sub, err2 := p.sub()
			if err2 != nil {
				return err2
			}
			var vi ValueInfoProto
			if err2 = sub.readValueInfoProto(&vi); err2 != nil {
				return err2
			}
			m.Inputs = append(m.Inputs, vi)
			continue
		case 12: // output
			sub, err2 := p.sub()
			if err2 != nil {
				return err2
			}
			var vi ValueInfoProto
			if err2 = sub.readValueInfoProto(&vi); err2 != nil {
				return err2
			}
			m.Outputs = append(m.Outputs, vi)
			continue
		case 13: // value_info
			sub, err2 := p.sub()
			if err2 != nil {
				return err2
			}
			var vi ValueInfoProto
			if err2 = sub.readValueInfoProto(&vi); err2 != nil {
				return err2
			}
			m.ValueInfo = append(m.ValueInfo, vi)
			continue
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readNodeProto reads a NodeProto message.
//
//nolint:gocognit,gocyclo,cyclop // protobuf parsing is a field-by-field switch
func (p *parser) readNodeProto(m *NodeProto) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // input
			var s string
			if s, err = p.readString(); err == nil {
				m.Inputs = append(m.Inputs, s)
			}
		case 2: // output
			var s string
			if s, err = p.readString(); err == nil {
				m.Outputs = append(m.Outputs, s)
			}
		case 3: // name
			m.Name, err = p.readString()
		case 4: // op_type
			m.OpType, err = p.readString()
		case 5: // attribute
			sub, err2 := p.sub()
			if err2 != nil {
				return err2
			}
			var attr AttributeProto
			if err2 = sub.readAttributeProto(&attr); err2 != nil {
				return err2
			}
			m.Attributes = append(m.Attributes, attr)
			continue
		case 6: // doc_string
			m.DocString, err = p.readString()
		case 7: // domain
			m.Domain, err = p.readString()
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readTensorProto reads a TensorProto message.
//
//nolint:gocognit,gocyclo,cyclop // protobuf parsing is a field-by-field switch
func (p *parser) readTensorProto(m *TensorProto) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // dims
			m.Dims, err = p.readPackedInt64s(wireType, m.Dims)
		case 2: // data_type
			m.DataType, err = p.readInt32()
		case 4: // float_data
			m.FloatData, err = p.readPackedFloat32s(wireType, m.FloatData)
		case 5: // int32_data
			m.Int32Data, err = p.readPackedInt32s(wireType, m.Int32Data)
		case 7: // int64_data
			m.Int64Data, err = p.readPackedInt64s(wireType, m.Int64Data)
		case 8: // name
			m.Name, err = p.readString()
		case 9: // raw_data
			m.RawData, err = p.readBytes()
		case 10: // double_data
			m.DoubleData, err = p.readPackedFloat64s(wireType, m.DoubleData)
		case 11: // uint64_data
			m.Uint64Data, err = p.readPackedUint64s(wireType, m.Uint64Data)
		case 12: // doc_string
			m.DocString, err = p.readString()
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readValueInfoProto reads a ValueInfoProto message.
func (p *parser) readValueInfoProto(m *ValueInfoProto) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // name
			m.Name, err = p.readString()
		case 2: // type
			sub, err2 := p.sub()
			if err2 != nil {
				return err2
			}
			m.Type = &TypeProto{}
			if err2 = sub.readTypeProto(m.Type); err2 != nil {
				return err2
			}
			continue
		case 3: // doc_string
			m.DocString, err = p.readString()
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readTypeProto reads a TypeProto message. Only tensor types are decoded;
// sequence, map, and optional types are skipped.
func (p *parser) readTypeProto(m *TypeProto) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // tensor_type
			sub, err2 := p.sub()
			if err2 != nil {
				return err2
			}
			m.TensorType = &TensorTypeProto{}
			if err2 = sub.readTensorTypeProto(m.TensorType); err2 != nil {
				return err2
			}
			continue
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readTensorTypeProto reads a TensorTypeProto message.
func (p *parser) readTensorTypeProto(m *TensorTypeProto) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // elem_type
			m.ElemType, err = p.readInt32()
		case 2: // shape
			sub, err2 := p.sub()
			if err2 != nil {
				return err2
			}
			m.Shape = &TensorShapeProto{}
			if err2 = sub.readTensorShapeProto(m.Shape); err2 != nil {
				return err2
			}
			continue
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readTensorShapeProto reads a TensorShapeProto message.
func (p *parser) readTensorShapeProto(m *TensorShapeProto) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // dim
			sub, err2 := p.sub()
			if err2 != nil {
				return err2
			}
			var dim DimensionProto
			if err2 = sub.readDimensionProto(&dim); err2 != nil {
				return err2
			}
			m.Dims = append(m.Dims, dim)
			continue
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readDimensionProto reads a DimensionProto message.
func (p *parser) readDimensionProto(m *DimensionProto) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // dim_value
			m.DimValue, err = p.readVarint()
		case 2: // dim_param
			m.DimParam, err = p.readString()
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readAttributeProto reads an AttributeProto message.
//
//nolint:gocognit,gocyclo,cyclop // protobuf parsing is a field-by-field switch
func (p *parser) readAttributeProto(m *AttributeProto) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // name
			m.Name, err = p.readString()
		case 2: // f
			m.F, err = p.readFloat32()
		case 3: // i
			m.I, err = p.readVarint()
		case 4: // s
			m.S, err = p.readBytes()
		case 5: // t
			sub, err2 := p.sub()
			if err2 != nil {
				return err2
			}
			m.T = &TensorProto{}
			if err2 = sub.readTensorProto(m.T); err2 != nil {
				return err2
			}
			continue
		case 6: // g
			sub, err2 := p.sub()
			if err2 != nil {
				return err2
			}
			m.G = &GraphProto{}
			if err2 = sub.readGraphProto(m.G); err2 != nil {
				return err2
			}
			continue
		case 7: // floats
			m.Floats, err = p.readPackedFloat32s(wireType, m.Floats)
		case 8: // ints
			m.Ints, err = p.readPackedInt64s(wireType, m.Ints)
		case 9: // strings
			var data []byte
			if data, err = p.readBytes(); err == nil {
				m.Strings = append(m.Strings, data)
			}
		case 10: // tensors
			sub, err2 := p.sub()
			if err2 != nil {
				return err2
			}
			var t TensorProto
			if err2 = sub.readTensorProto(&t); err2 != nil {
				return err2
			}
			m.Tensors = append(m.Tensors, t)
			continue
		case 11: // graphs
			sub, err2 := p.sub()
			if err2 != nil {
				return err2
			}
			var g GraphProto
			if err2 = sub.readGraphProto(&g); err2 != nil {
				return err2
			}
			m.Graphs = append(m.Graphs, g)
			continue
		case 13: // doc_string
			m.DocString, err = p.readString()
		case 20: // type
			m.Type, err = p.readInt32()
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readOperatorSetID reads an OperatorSetIdProto message.
func (p *parser) readOperatorSetID(m *OperatorSetID) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // domain
			m.Domain, err = p.readString()
		case 2: // version
			m.Version, err = p.readVarint()
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readStringStringEntry reads a StringStringEntryProto message.
func (p *parser) readStringStringEntry(m *StringStringEntry) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // key
			m.Key, err = p.readString()
		case 2: // value
			m.Value, err = p.readString()
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readTag reads a protobuf field tag.
func (p *parser) readTag() (fieldNum, wireType int, err error) {
	if p.pos >= len(p.data) {
		return 0, 0, io.EOF
	}
	tag, err := p.readVarint()
	if err != nil {
		return 0, 0, err
	}
	fieldNum = int(tag >> 3)
	wireType = int(tag & 0x7)
	return fieldNum, wireType, nil
}

// readVarint reads a varint-encoded int64.
func (p *parser) readVarint() (int64, error) {
	var result uint64
	var shift uint
	for {
		if p.pos >= len(p.data) {
			return 0, io.EOF
		}
		b := p.data[p.pos]
		p.pos++
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift >= 64 {
			return 0, errors.New("varint overflow")
		}
	}
	return int64(result), nil //nolint:gosec // G115: protobuf varints are raw two's-complement bits
}

// readInt32 reads a varint-encoded int32.
func (p *parser) readInt32() (int32, error) {
	v, err := p.readVarint()
	if err != nil {
		return 0, err
	}
	return int32(v), nil //nolint:gosec // G115: ONNX enum values fit in int32
}

// readBytes reads a length-delimited byte slice. The result aliases the
// parser's input buffer.
func (p *parser) readBytes() ([]byte, error) {
	length, err := p.readVarint()
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, errors.New("negative length")
	}
	end := p.pos + int(length)
	if end > len(p.data) {
		return nil, io.ErrUnexpectedEOF
	}
	result := p.data[p.pos:end]
	p.pos = end
	return result, nil
}

// readString reads a length-delimited field as a string.
func (p *parser) readString() (string, error) {
	data, err := p.readBytes()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// sub returns a parser over the next length-delimited payload.
func (p *parser) sub() (*parser, error) {
	data, err := p.readBytes()
	if err != nil {
		return nil, err
	}
	return &parser{data: data}, nil
}

// readFloat32 reads a 32-bit float.
func (p *parser) readFloat32() (float32, error) {
	if p.pos+4 > len(p.data) {
		return 0, io.ErrUnexpectedEOF
	}
	bits := binary.LittleEndian.Uint32(p.data[p.pos:])
	p.pos += 4
	return math.Float32frombits(bits), nil
}

// readFloat64 reads a 64-bit float.
func (p *parser) readFloat64() (float64, error) {
	if p.pos+8 > len(p.data) {
		return 0, io.ErrUnexpectedEOF
	}
	bits := binary.LittleEndian.Uint64(p.data[p.pos:])
	p.pos += 8
	return math.Float64frombits(bits), nil
}

// readPackedInt64s reads a packed repeated varint field, or a single
// unpacked element when the writer did not pack it.
func (p *parser) readPackedInt64s(wireType int, dst []int64) ([]int64, error) {
	if wireType == wireVarint {
		v, err := p.readVarint()
		if err != nil {
			return dst, err
		}
		return append(dst, v), nil
	}
	data, err := p.readBytes()
	if err != nil {
		return dst, err
	}
	sub := &parser{data: data}
	for sub.pos < len(sub.data) {
		v, err := sub.readVarint()
		if err != nil {
			return dst, err
		}
		dst = append(dst, v)
	}
	return dst, nil
}

// readPackedInt32s reads a packed repeated int32 field.
func (p *parser) readPackedInt32s(wireType int, dst []int32) ([]int32, error) {
	vals, err := p.readPackedInt64s(wireType, nil)
	if err != nil {
		return dst, err
	}
	for _, v := range vals {
		dst = append(dst, int32(v)) //nolint:gosec // G115: ONNX stores int32 payloads as varints
	}
	return dst, nil
}

// readPackedUint64s reads a packed repeated uint64 field.
func (p *parser) readPackedUint64s(wireType int, dst []uint64) ([]uint64, error) {
	vals, err := p.readPackedInt64s(wireType, nil)
	if err != nil {
		return dst, err
	}
	for _, v := range vals {
		dst = append(dst, uint64(v)) //nolint:gosec // G115: varints are raw two's-complement bits
	}
	return dst, nil
}

// readPackedFloat32s reads a packed repeated float field, or a single
// unpacked element.
func (p *parser) readPackedFloat32s(wireType int, dst []float32) ([]float32, error) {
	if wireType == wire32Bit {
		v, err := p.readFloat32()
		if err != nil {
			return dst, err
		}
		return append(dst, v), nil
	}
	data, err := p.readBytes()
	if err != nil {
		return dst, err
	}
	if len(data)%4 != 0 {
		return dst, fmt.Errorf("packed float field has %d bytes, not a multiple of 4", len(data))
	}
	for i := 0; i < len(data); i += 4 {
		dst = append(dst, math.Float32frombits(binary.LittleEndian.Uint32(data[i:])))
	}
	return dst, nil
}

// readPackedFloat64s reads a packed repeated double field, or a single
// unpacked element.
func (p *parser) readPackedFloat64s(wireType int, dst []float64) ([]float64, error) {
	if wireType == wire64Bit {
		v, err := p.readFloat64()
		if err != nil {
			return dst, err
		}
		return append(dst, v), nil
	}
	data, err := p.readBytes()
	if err != nil {
		return dst, err
	}
	if len(data)%8 != 0 {
		return dst, fmt.Errorf("packed double field has %d bytes, not a multiple of 8", len(data))
	}
	for i := 0; i < len(data); i += 8 {
		dst = append(dst, math.Float64frombits(binary.LittleEndian.Uint64(data[i:])))
	}
	return dst, nil
}

// skipField skips a field based on wire type.
func (p *parser) skipField(wireType int) error {
	switch wireType {
	case wireVarint:
		_, err := p.readVarint()
		return err
	case wire64Bit:
		if p.pos+8 > len(p.data) {
			return io.ErrUnexpectedEOF
		}
		p.pos += 8
		return nil
	case wireBytes:
		_, err := p.readBytes()
		return err
	case wire32Bit:
		if p.pos+4 > len(p.data) {
			return io.ErrUnexpectedEOF
		}
		p.pos += 4
		return nil
	default:
		return fmt.Errorf("unknown wire type: %d", wireType)
	}
}
