// Package operators lowers ONNX operators into the target IR.
//
// The package provides a registry mapping (operator type, opset version) to a
// translator: a pure function that turns one source node into the IR values
// implementing it. Translators validate element types and attributes, resolve
// version-specific conventions such as axes-as-attribute vs. axes-as-input,
// and synthesize dynamic computation for information that is only known at
// run time.
//
// The reduction family (ReduceSum, ReduceMean, ReduceMin, ReduceMax,
// ReduceProd, ReduceL1, ReduceL2, ReduceLogSum, ReduceLogSumExp,
// ReduceSumSquare) carries the full versioned-dispatch treatment; the
// elementwise and structural operators it composes with are registered
// alongside it.
package operators
