// Package onnx parses ONNX models and lowers them to IR graphs.
//
// ONNX (Open Neural Network Exchange) is an open format for representing
// machine learning models. This package implements a hand-written protobuf
// parser for .onnx files without external dependencies, plus the importer
// that turns a parsed model into an ir.Graph: initializers become constants,
// declared inputs become graph inputs with partial shapes, and each node is
// translated under the opset version the model imports.
//
// Key components:
//   - ModelProto: Top-level ONNX model structure with metadata and graph
//   - GraphProto: Computation graph with nodes, inputs, outputs, and initializers
//   - NodeProto: Single operation in the graph (e.g., ReduceSum, Squeeze)
//   - TensorProto: Weight/initializer tensor with data and shape
//   - ValueInfoProto: Input/output tensor type information
//   - Import/ImportFile/ImportBytes: model -> ir.Graph construction
//
// Example usage:
//
//	// Parse and lower an ONNX file
//	graph, err := onnx.ImportFile("model.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Inspect the lowered graph
//	fmt.Printf("Graph: %s with %d nodes\n", graph.Name(), graph.NumNodes())
//	fmt.Print(graph)
package onnx
