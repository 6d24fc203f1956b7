package onnx

import (
	internalonnx "github.com/kiln-ml/kiln/internal/onnx"
)

// Aliases for the parsed protobuf structures, so models can be inspected and
// assembled without touching serialized bytes.

// ModelProto represents a parsed ONNX model.
type ModelProto = internalonnx.ModelProto

// GraphProto represents the computation graph of a model.
type GraphProto = internalonnx.GraphProto

// NodeProto represents a single operation in the graph.
type NodeProto = internalonnx.NodeProto

// TensorProto represents a tensor payload (weights and initializers).
type TensorProto = internalonnx.TensorProto

// ValueInfoProto describes an input or output tensor declaration.
type ValueInfoProto = internalonnx.ValueInfoProto

// TypeProto describes a declared tensor type.
type TypeProto = internalonnx.TypeProto

// TensorTypeProto carries element type and shape of a declaration.
type TensorTypeProto = internalonnx.TensorTypeProto

// TensorShapeProto lists declared dimensions.
type TensorShapeProto = internalonnx.TensorShapeProto

// DimensionProto is one declared dimension, static or symbolic.
type DimensionProto = internalonnx.DimensionProto

// AttributeProto represents a node attribute.
type AttributeProto = internalonnx.AttributeProto

// OperatorSetID declares the opset version a model imports.
type OperatorSetID = internalonnx.OperatorSetID

// StringStringEntry is one key-value metadata pair.
type StringStringEntry = internalonnx.StringStringEntry

// ONNX element types (TensorProto.DataType).
const (
	TensorProtoFloat    = internalonnx.TensorProtoFloat
	TensorProtoUint8    = internalonnx.TensorProtoUint8
	TensorProtoInt32    = internalonnx.TensorProtoInt32
	TensorProtoInt64    = internalonnx.TensorProtoInt64
	TensorProtoBool     = internalonnx.TensorProtoBool
	TensorProtoFloat16  = internalonnx.TensorProtoFloat16
	TensorProtoDouble   = internalonnx.TensorProtoDouble
	TensorProtoUint32   = internalonnx.TensorProtoUint32
	TensorProtoUint64   = internalonnx.TensorProtoUint64
	TensorProtoBfloat16 = internalonnx.TensorProtoBfloat16
)

// ONNX attribute types (AttributeProto.Type).
const (
	AttributeProtoFloat   = internalonnx.AttributeProtoFloat
	AttributeProtoInt     = internalonnx.AttributeProtoInt
	AttributeProtoString  = internalonnx.AttributeProtoString
	AttributeProtoTensor  = internalonnx.AttributeProtoTensor
	AttributeProtoFloats  = internalonnx.AttributeProtoFloats
	AttributeProtoInts    = internalonnx.AttributeProtoInts
	AttributeProtoStrings = internalonnx.AttributeProtoStrings
)
