package main

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/vtree/pkg/htmldom"
	"github.com/vango-dev/vtree/pkg/perf"
	"github.com/vango-dev/vtree/pkg/vdom"
)

func diffCmd() *cobra.Command {
	var (
		asJSON bool
		timing bool
		minify bool
	)

	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Print the patches that turn OLD into NEW",
		Long: `Print the positional patches that turn OLD into NEW.

Examples:
  vtree diff before.html after.html
  vtree diff --json before.json after.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []htmldom.ParseOption
			if minify {
				opts = append(opts, htmldom.WithMinify())
			}

			rec := perf.NewRecorder()
			var (
				oldTree, newTree *vdom.VNode
				err              error
			)
			rec.Measure("parse", func() {
				oldTree, err = loadTree(args[0], opts...)
				if err == nil {
					newTree, err = loadTree(args[1], opts...)
				}
			})
			if err != nil {
				return err
			}

			var patches []vdom.Patch
			rec.Measure("diff", func() {
				patches = vdom.Diff(oldTree, newTree)
			})

			out := cmd.OutOrStdout()
			if asJSON {
				if err := printPatchesJSON(out, patches); err != nil {
					return err
				}
			} else {
				printPatches(out, patches)
			}
			if timing {
				cmd.PrintErr(rec.Report())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print patches as JSON")
	cmd.Flags().BoolVar(&timing, "timing", false, "Print parse and diff timings to stderr")
	cmd.Flags().BoolVar(&minify, "minify", false, "Minify HTML input before parsing")

	return cmd
}
