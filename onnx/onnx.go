// Package onnx imports ONNX models into kiln IR graphs.
//
// This package parses the ONNX protobuf format and lowers each operator to
// IR nodes, resolving opset-versioned operator semantics at import time.
//
// # Supported Features
//
//   - ONNX format parsing (protobuf-based, no generated code)
//   - Versioned operator dispatch (opsets 1-21)
//   - Partial shapes: symbolic dimensions stay dynamic through lowering
//   - Initializer decoding for raw and typed tensor payloads
//
// # Example Usage
//
//	import (
//	    "github.com/kiln-ml/kiln/onnx"
//	)
//
//	graph, err := onnx.Import("model.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(graph) // one-node-per-line IR dump
//
// # Supported Operators
//
// The following ONNX operators are supported:
//
//   - Reduction: ReduceSum, ReduceMean, ReduceMin, ReduceMax, ReduceProd,
//     ReduceL1, ReduceL2, ReduceLogSum, ReduceLogSumExp, ReduceSumSquare
//   - Arithmetic: Add, Sub, Mul, Div, Exp, Log, Sqrt
//   - Shape: Shape, Squeeze
//   - Other: Constant, Identity
//
// Use [ListSupportedOps] to get the complete list of supported operators.
package onnx

import (
	internalonnx "github.com/kiln-ml/kiln/internal/onnx"
	"github.com/kiln-ml/kiln/ir"
)

// ImportOptions configures ONNX graph construction behavior.
type ImportOptions = internalonnx.ImportOptions

// DefaultImportOptions returns the default options for importing ONNX models.
//
// Default configuration:
//   - Strict mode: unsupported operators fail the import
//   - Opset version: taken from the model's opset_import declaration
func DefaultImportOptions() ImportOptions {
	return internalonnx.DefaultImportOptions()
}

// Import loads an ONNX model from a file path and lowers it to an IR graph.
//
// The function parses the ONNX protobuf format, resolves the declared opset
// version, and translates every node through the operator registry.
//
// Example:
//
//	graph, err := onnx.Import("resnet18.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Nodes:", graph.NumNodes())
//
// For custom import options, pass ImportOptions:
//
//	opts := onnx.DefaultImportOptions()
//	opts.SkipUnsupported = true // unsupported ops become opaque values
//	graph, err := onnx.Import("model.onnx", opts)
func Import(path string, opts ...ImportOptions) (*ir.Graph, error) {
	return internalonnx.ImportFile(path, opts...)
}

// ImportBytes lowers an ONNX model from raw bytes.
//
// This is useful when the model is embedded in the binary or loaded from a
// network source.
//
// Example:
//
//	modelBytes, _ := os.ReadFile("model.onnx")
//	graph, err := onnx.ImportBytes(modelBytes)
func ImportBytes(data []byte, opts ...ImportOptions) (*ir.Graph, error) {
	return internalonnx.ImportBytes(data, opts...)
}

// ImportProto lowers an already-parsed model.
//
// Use this together with [Parse] or [ParseFile] when the same model is
// inspected before being lowered, or lowered more than once under different
// options.
func ImportProto(model *ModelProto, opts ...ImportOptions) (*ir.Graph, error) {
	return internalonnx.Import(model, opts...)
}

// Parse decodes serialized ONNX protobuf bytes without lowering them.
func Parse(data []byte) (*ModelProto, error) {
	return internalonnx.Parse(data)
}

// ParseFile decodes an ONNX model file without lowering it.
func ParseFile(path string) (*ModelProto, error) {
	return internalonnx.ParseFile(path)
}

// ModelInfo contains metadata about an ONNX model without lowering it.
//
// Use [GetModelInfo] to quickly inspect a model file before importing.
type ModelInfo = internalonnx.ModelInfo

// GetModelInfo extracts metadata from an ONNX file without building a graph.
//
// Example:
//
//	info, err := onnx.GetModelInfo("model.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Producer: %s\n", info.ProducerName)
//	fmt.Printf("Opset: %d\n", info.OpsetVersion)
//	fmt.Printf("Inputs: %v\n", info.InputNames)
//	fmt.Printf("Outputs: %v\n", info.OutputNames)
func GetModelInfo(path string) (*ModelInfo, error) {
	return internalonnx.GetModelInfo(path)
}

// InfoFromProto extracts metadata from an already-parsed model.
func InfoFromProto(model *ModelProto) *ModelInfo {
	return internalonnx.InfoFromProto(model)
}

// UnsupportedOps returns the distinct operator types in the model that no
// registered translator covers at the given opset version, sorted.
func UnsupportedOps(model *ModelProto, opsetVersion int64) []string {
	return internalonnx.UnsupportedOps(model, opsetVersion)
}

// ListSupportedOps returns a list of all ONNX operators kiln can lower.
//
// Example:
//
//	ops := onnx.ListSupportedOps()
//	for _, op := range ops {
//	    fmt.Println(op)
//	}
func ListSupportedOps() []string {
	return internalonnx.ListSupportedOps()
}
