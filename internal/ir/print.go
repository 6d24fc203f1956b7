package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// maxInlineElements is the largest constant printed element by element;
// bigger payloads are elided.
const maxInlineElements = 8

// String renders the graph in a stable one-node-per-line form, suitable for
// golden tests and debugging:
//
//	graph "model" {
//	  %0 = input "data" : float32[3,2]
//	  %1 = constant {0, 1} : int64[2]
//	  %2 = reduce_sum(%0, %1) keepdims=true : float32[1,1]
//	  return %2
//	}
func (g *Graph) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "graph %q {\n", g.name)
	for _, n := range g.nodes {
		b.WriteString("  ")
		b.WriteString(n.String())
		b.WriteByte('\n')
	}
	if len(g.outputs) > 0 {
		refs := make([]string, len(g.outputs))
		for i, v := range g.outputs {
			refs[i] = "%" + strconv.Itoa(v.node.id)
		}
		fmt.Fprintf(&b, "  return %s\n", strings.Join(refs, ", "))
	}
	b.WriteString("}\n")
	return b.String()
}

// String renders the node as a single line of the graph dump.
func (n *Node) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%%%d = %s", n.id, n.op)
	switch n.op {
	case OpInput:
		fmt.Fprintf(&b, " %q", n.name)
	case OpConstant:
		b.WriteByte(' ')
		b.WriteString(formatPayload(n.out))
	case OpOpaque:
	default:
		refs := make([]string, len(n.inputs))
		for i, v := range n.inputs {
			refs[i] = "%" + strconv.Itoa(v.node.id)
		}
		fmt.Fprintf(&b, "(%s)", strings.Join(refs, ", "))
		if n.op.IsReduction() {
			fmt.Fprintf(&b, " keepdims=%t", n.keepDims)
		}
	}
	fmt.Fprintf(&b, " : %s%s", n.out.dtype, n.out.shape)
	return b.String()
}

func formatPayload(v *Value) string {
	if n, ok := v.shape.NumElements(); !ok || n > maxInlineElements {
		return "{...}"
	}
	if vals, ok := v.ConstInt64s(); ok {
		elems := make([]string, len(vals))
		for i, x := range vals {
			elems[i] = strconv.FormatInt(x, 10)
		}
		return "{" + strings.Join(elems, ", ") + "}"
	}
	if vals, ok := v.ConstFloats(); ok {
		bits := 32
		if v.dtype == Float64 {
			bits = 64
		}
		elems := make([]string, len(vals))
		for i, x := range vals {
			elems[i] = strconv.FormatFloat(x, 'g', -1, bits)
		}
		return "{" + strings.Join(elems, ", ") + "}"
	}
	return "{...}"
}
