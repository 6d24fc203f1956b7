package cli

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/kiln-ml/kiln/internal/onnx"
	"github.com/kiln-ml/kiln/internal/onnx/operators"
)

// LowerOptions holds flags for the lower command.
type LowerOptions struct {
	*RootOptions
	OptionsFile     string
	Opset           int64
	SkipUnsupported bool
}

// lowerConfig is the YAML shape of --options files.
type lowerConfig struct {
	OpsetVersion    int64 `yaml:"opset_version"`
	SkipUnsupported bool  `yaml:"skip_unsupported"`
}

// NewLowerCommand creates the lower command.
func NewLowerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LowerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "lower <model.onnx>",
		Short: "Lower an ONNX model to an IR graph",
		Long: `Lower an ONNX model to an IR graph and print the one-node-per-line dump.

Import behavior can be configured through flags or a YAML options file:

  opset_version: 12       # override the declared opset
  skip_unsupported: true  # lower unknown operators to opaque values

Flags take precedence over the options file.

Example:
  kiln lower model.onnx
  kiln lower --opset 12 model.onnx
  kiln lower --options import.yaml model.onnx`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLower(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.OptionsFile, "options", "", "path to a YAML import options file")
	cmd.Flags().Int64Var(&opts.Opset, "opset", 0, "override the declared opset version")
	cmd.Flags().BoolVar(&opts.SkipUnsupported, "skip-unsupported", false,
		"lower unsupported operators to opaque values")

	return cmd
}

func runLower(opts *LowerOptions, path string, cmd *cobra.Command) error {
	importOpts, err := loadImportOptions(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load import options", err)
	}

	graph, err := onnx.ImportFile(path, importOpts)
	if err != nil {
		// Translation failures carry an operator error code; everything
		// else is a problem with the invocation itself.
		if operators.CodeOf(err) != "" {
			return WrapExitError(ExitFailure, "failed to lower model", err)
		}
		return WrapExitError(ExitCommandError, "failed to read model", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), graph)
	return nil
}

// loadImportOptions merges the YAML options file with command-line flags.
func loadImportOptions(opts *LowerOptions) (onnx.ImportOptions, error) {
	importOpts := onnx.DefaultImportOptions()
	if opts.OptionsFile != "" {
		data, err := os.ReadFile(opts.OptionsFile)
		if err != nil {
			return importOpts, err
		}
		var cfg lowerConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return importOpts, err
		}
		importOpts.OpsetVersion = cfg.OpsetVersion
		importOpts.SkipUnsupported = cfg.SkipUnsupported
	}
	if opts.Opset != 0 {
		importOpts.OpsetVersion = opts.Opset
	}
	if opts.SkipUnsupported {
		importOpts.SkipUnsupported = true
	}
	return importOpts, nil
}
