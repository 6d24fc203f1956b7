package cli

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kiln-ml/kiln/internal/onnx"
)

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info <model.onnx>",
		Short: "Summarize an ONNX model",
		Long: `Summarize an ONNX model without lowering it.

Prints the graph structure, declared opset, producer metadata, and any
operators no registered translator covers.

Example:
  kiln info model.onnx`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(rootOpts, args[0], cmd)
		},
	}
}

func runInfo(_ *RootOptions, path string, cmd *cobra.Command) error {
	model, err := onnx.ParseFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read model", err)
	}
	info := onnx.InfoFromProto(model)

	out := cmd.OutOrStdout()
	heading := color.New(color.FgCyan, color.Bold).SprintFunc()

	name := info.GraphName
	if name == "" {
		name = filepath.Base(path)
	}
	fmt.Fprintf(out, "%s %s\n", heading("Model:"), name)
	fmt.Fprintf(out, "  IR version:   %d\n", info.IRVersion)
	fmt.Fprintf(out, "  Opset:        %d\n", info.OpsetVersion)
	if info.ProducerName != "" {
		fmt.Fprintf(out, "  Producer:     %s\n",
			strings.TrimSpace(info.ProducerName+" "+info.ProducerVersion))
	}
	fmt.Fprintf(out, "  Inputs:       %s\n", strings.Join(info.InputNames, ", "))
	fmt.Fprintf(out, "  Outputs:      %s\n", strings.Join(info.OutputNames, ", "))
	fmt.Fprintf(out, "  Nodes:        %d\n", info.NodeCount)
	fmt.Fprintf(out, "  Initializers: %d\n", info.InitializerCount)
	if len(info.Metadata) > 0 {
		fmt.Fprintf(out, "  %s\n", heading("Metadata:"))
		keys := make([]string, 0, len(info.Metadata))
		for k := range info.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "    %s: %s\n", k, info.Metadata[k])
		}
	}

	if missing := onnx.UnsupportedOps(model, info.OpsetVersion); len(missing) > 0 {
		warn := color.New(color.FgYellow).SprintfFunc()
		fmt.Fprintf(out, "\n%s\n", warn("Unsupported operators at opset %d:", info.OpsetVersion))
		for _, op := range missing {
			fmt.Fprintf(out, "  - %s\n", op)
		}
	}
	return nil
}
