// Package main provides the kiln CLI.
package main

import (
	"fmt"
	"os"

	"github.com/kiln-ml/kiln/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
