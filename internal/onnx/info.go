package onnx

import (
	"sort"

	"github.com/kiln-ml/kiln/internal/onnx/operators"
)

// ModelInfo summarizes an ONNX model without lowering it.
type ModelInfo struct {
	IRVersion        int64
	OpsetVersion     int64
	ProducerName     string
	ProducerVersion  string
	GraphName        string
	InputNames       []string
	OutputNames      []string
	NodeCount        int
	InitializerCount int
	Metadata         map[string]string
}

// GetModelInfo extracts summary information from an ONNX file.
func GetModelInfo(path string) (*ModelInfo, error) {
	proto, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return InfoFromProto(proto), nil
}

// InfoFromProto extracts summary information from a parsed model.
func InfoFromProto(proto *ModelProto) *ModelInfo {
	info := &ModelInfo{
		IRVersion:       proto.IRVersion,
		ProducerName:    proto.ProducerName,
		ProducerVersion: proto.ProducerVersion,
	}
	if v, ok := declaredOpset(proto); ok {
		info.OpsetVersion = v
	}
	if len(proto.MetadataProps) > 0 {
		info.Metadata = make(map[string]string, len(proto.MetadataProps))
		for _, prop := range proto.MetadataProps {
			info.Metadata[prop.Key] = prop.Value
		}
	}

	if proto.Graph != nil {
		g := proto.Graph
		info.GraphName = g.Name

		// Inputs are graph inputs minus initializers.
		initNames := make(map[string]bool)
		for i := range g.Initializers {
			initNames[g.Initializers[i].Name] = true
		}
		for i := range g.Inputs {
			if !initNames[g.Inputs[i].Name] {
				info.InputNames = append(info.InputNames, g.Inputs[i].Name)
			}
		}
		for i := range g.Outputs {
			info.OutputNames = append(info.OutputNames, g.Outputs[i].Name)
		}
		info.NodeCount = len(g.Nodes)
		info.InitializerCount = len(g.Initializers)
	}
	return info
}

// UnsupportedOps returns the distinct operator types in the model that no
// registered translator covers at the given opset version, sorted.
func UnsupportedOps(proto *ModelProto, opsetVersion int64) []string {
	if proto.Graph == nil {
		return nil
	}
	registry := operators.NewRegistry()
	seen := make(map[string]bool)
	var unsupported []string
	for i := range proto.Graph.Nodes {
		op := proto.Graph.Nodes[i].OpType
		if seen[op] {
			continue
		}
		seen[op] = true
		if _, err := registry.Lookup(op, opsetVersion); err != nil {
			unsupported = append(unsupported, op)
		}
	}
	sort.Strings(unsupported)
	return unsupported
}

// ListSupportedOps returns all operator types with registered translators.
func ListSupportedOps() []string {
	registry := operators.NewRegistry()
	return registry.SupportedOps()
}
