// Copyright 2026 Kiln ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package ir provides the public API for kiln's intermediate representation.
//
// The package defines the graph structure that ONNX models are lowered to:
//   - Graph: an append-only operation graph under construction
//   - Node, Value: operations and the tensor handles they produce
//   - DataType, Shape, Dim: element types and partially-known shapes
//
// Values carry a static, partially static, or fully dynamic shape; shape
// arithmetic (reduction, squeezing, broadcasting) is folded at construction
// time whenever the operands are statically known.
//
// Example:
//
//	g := ir.NewGraph("model")
//	x := g.Input("x", ir.Float32, ir.Static(2, 3))
//	sum, err := g.Reduce(ir.ReduceSum, x, g.Int64Vector(1), true)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	g.AddOutput(sum)
//	fmt.Print(g) // one-node-per-line dump
package ir

import (
	"github.com/kiln-ml/kiln/internal/ir"
)

// Type aliases for public API

// Graph is an IR graph under construction. Nodes are appended through the
// constructor methods and never removed.
type Graph = ir.Graph

// Node is a single operation in a Graph.
type Node = ir.Node

// Value is a handle to a tensor produced in the graph.
type Value = ir.Value

// OpKind enumerates the operation kinds a graph node can have.
type OpKind = ir.OpKind

// Operation kind constants.
const (
	OpInvalid    OpKind = ir.OpInvalid
	OpInput      OpKind = ir.OpInput
	OpConstant   OpKind = ir.OpConstant
	OpOpaque     OpKind = ir.OpOpaque
	OpShapeOf    OpKind = ir.OpShapeOf
	OpSqueeze    OpKind = ir.OpSqueeze
	OpRange      OpKind = ir.OpRange
	OpExp        OpKind = ir.OpExp
	OpLog        OpKind = ir.OpLog
	OpSqrt       OpKind = ir.OpSqrt
	OpAdd        OpKind = ir.OpAdd
	OpSub        OpKind = ir.OpSub
	OpMul        OpKind = ir.OpMul
	OpDiv        OpKind = ir.OpDiv
	OpReduceSum  OpKind = ir.OpReduceSum
	OpReduceMean OpKind = ir.OpReduceMean
	OpReduceMin  OpKind = ir.OpReduceMin
	OpReduceMax  OpKind = ir.OpReduceMax
	OpReduceProd OpKind = ir.OpReduceProd
	OpReduceL1   OpKind = ir.OpReduceL1
	OpReduceL2   OpKind = ir.OpReduceL2
)

// ReduceKind tags the arithmetic a reduction node performs.
type ReduceKind = ir.ReduceKind

// Reduction kind constants.
const (
	ReduceSum  ReduceKind = ir.ReduceSum
	ReduceMean ReduceKind = ir.ReduceMean
	ReduceMin  ReduceKind = ir.ReduceMin
	ReduceMax  ReduceKind = ir.ReduceMax
	ReduceProd ReduceKind = ir.ReduceProd
	ReduceL1   ReduceKind = ir.ReduceL1
	ReduceL2   ReduceKind = ir.ReduceL2
)

// DataType represents the element type of a value.
type DataType = ir.DataType

// Element type constants.
const (
	Invalid  DataType = ir.Invalid
	Float16  DataType = ir.Float16
	BFloat16 DataType = ir.BFloat16
	Float32  DataType = ir.Float32
	Float64  DataType = ir.Float64
	Int32    DataType = ir.Int32
	Int64    DataType = ir.Int64
	Uint8    DataType = ir.Uint8
	Uint32   DataType = ir.Uint32
	Uint64   DataType = ir.Uint64
	Bool     DataType = ir.Bool
)

// TypeSet is a set of element types, used to express operator type
// constraints.
type TypeSet = ir.TypeSet

// Shape describes the dimensions of a Value. A shape is static, partially
// static (known rank, some dynamic dimensions), or fully dynamic (unknown
// rank).
type Shape = ir.Shape

// Dim is a single dimension of a Shape.
type Dim = ir.Dim

// DynamicDim marks a dimension whose extent is only known at run time.
const DynamicDim = ir.DynamicDim

// Creation functions

// NewGraph creates an empty graph.
//
// Example:
//
//	g := ir.NewGraph("model")
//	x := g.Input("x", ir.Float32, ir.Static(4))
//	g.AddOutput(g.Exp(x))
func NewGraph(name string) *Graph {
	return ir.NewGraph(name)
}

// MakeShape builds a shape of known rank from the given dimensions.
// Use DynamicDim for extents only known at run time:
//
//	ir.MakeShape(ir.DynamicDim, 128) // [?,128]
func MakeShape(dims ...Dim) Shape {
	return ir.MakeShape(dims...)
}

// Static builds a fully static shape.
func Static(dims ...int64) Shape {
	return ir.Static(dims...)
}

// ScalarShape returns the rank-0 shape.
func ScalarShape() Shape {
	return ir.ScalarShape()
}

// DynamicShape returns the shape with unknown rank.
func DynamicShape() Shape {
	return ir.DynamicShape()
}

// Types builds a TypeSet from the given element types.
func Types(dts ...DataType) TypeSet {
	return ir.Types(dts...)
}

// BroadcastShapes applies NumPy-style broadcasting to two partial shapes.
// Dimensions are compared right to left; missing dimensions count as 1.
func BroadcastShapes(a, b Shape) (Shape, error) {
	return ir.BroadcastShapes(a, b)
}
