package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Version is the CLI version string, overridable at link time.
var Version = "v0.1.0-dev"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	NoColor bool
}

// NewRootCommand creates the root command for the kiln CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "kiln",
		Short: "Kiln - ONNX model lowering for Go",
		Long:  "Kiln lowers ONNX models to a typed IR graph with partial shape inference.",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if opts.NoColor {
				color.NoColor = true
			}
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	// Add subcommands
	cmd.AddCommand(NewVersionCommand())
	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewLowerCommand(opts))

	return cmd
}
