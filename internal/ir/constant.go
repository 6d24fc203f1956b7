package ir

import (
	"encoding/binary"
	"math"

	"github.com/x448/float16"
)

// IsConstant reports whether v is the output of a constant node.
func (v *Value) IsConstant() bool {
	return v.node.op == OpConstant
}

// RawData returns a copy of the little-endian payload of a constant value,
// or nil for non-constants.
func (v *Value) RawData() []byte {
	if !v.IsConstant() {
		return nil
	}
	out := make([]byte, len(v.node.raw))
	copy(out, v.node.raw)
	return out
}

// ConstInt64s decodes an integer constant into int64 elements in row-major
// order. It reports false for non-constants and for non-integer payloads.
func (v *Value) ConstInt64s() ([]int64, bool) {
	if !v.IsConstant() {
		return nil, false
	}
	raw := v.node.raw
	switch v.dtype {
	case Int32:
		out := make([]int64, len(raw)/4)
		for i := range out {
			out[i] = int64(int32(binary.LittleEndian.Uint32(raw[4*i:])))
		}
		return out, true
	case Int64:
		out := make([]int64, len(raw)/8)
		for i := range out {
			out[i] = int64(binary.LittleEndian.Uint64(raw[8*i:]))
		}
		return out, true
	case Uint8:
		out := make([]int64, len(raw))
		for i := range out {
			out[i] = int64(raw[i])
		}
		return out, true
	case Uint32:
		out := make([]int64, len(raw)/4)
		for i := range out {
			out[i] = int64(binary.LittleEndian.Uint32(raw[4*i:]))
		}
		return out, true
	case Uint64:
		out := make([]int64, len(raw)/8)
		for i := range out {
			out[i] = int64(binary.LittleEndian.Uint64(raw[8*i:]))
		}
		return out, true
	}
	return nil, false
}

// ConstFloats decodes a floating-point constant into float64 elements in
// row-major order. It reports false for non-constants and for non-float
// payloads.
func (v *Value) ConstFloats() ([]float64, bool) {
	if !v.IsConstant() {
		return nil, false
	}
	raw := v.node.raw
	switch v.dtype {
	case Float16:
		out := make([]float64, len(raw)/2)
		for i := range out {
			bits := binary.LittleEndian.Uint16(raw[2*i:])
			out[i] = float64(float16.Frombits(bits).Float32())
		}
		return out, true
	case BFloat16:
		out := make([]float64, len(raw)/2)
		for i := range out {
			bits := uint32(binary.LittleEndian.Uint16(raw[2*i:])) << 16
			out[i] = float64(math.Float32frombits(bits))
		}
		return out, true
	case Float32:
		out := make([]float64, len(raw)/4)
		for i := range out {
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:])))
		}
		return out, true
	case Float64:
		out := make([]float64, len(raw)/8)
		for i := range out {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
		}
		return out, true
	}
	return nil, false
}
