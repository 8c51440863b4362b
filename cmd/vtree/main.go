// Command vtree diffs, applies, watches and serves virtual trees.
package main

import (
	"os"

	"github.com/spf13/cobra"

	verrors "github.com/vango-dev/vtree/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		verrors.PrintError(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var noColor bool

	rootCmd := &cobra.Command{
		Use:   "vtree",
		Short: "Positional virtual-tree diff and patch tool",
		Long: `vtree computes positional patches between two trees and
replays them against a rendering.

Trees are read from HTML fragments, or from JSON when the file
ends in .json:

  {"tag":"div","attrs":{"class":"a"},"children":[{"text":"hi"}]}`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				verrors.DisableColors()
			}
		},
	}
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		diffCmd(),
		applyCmd(),
		watchCmd(),
		serveCmd(),
		versionCmd(),
	)
	return rootCmd
}
