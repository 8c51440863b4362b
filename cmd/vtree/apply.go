package main

import (
	"fmt"

	"github.com/spf13/cobra"

	verrors "github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/htmldom"
	"github.com/vango-dev/vtree/pkg/middleware"
	"github.com/vango-dev/vtree/pkg/perf"
	"github.com/vango-dev/vtree/pkg/reconcile"
)

func applyCmd() *cobra.Command {
	var timing bool

	cmd := &cobra.Command{
		Use:   "apply OLD NEW",
		Short: "Render OLD, patch it to NEW and print the result",
		Long: `Mount OLD into an HTML document, apply the patches from OLD
to NEW, and print the resulting HTML.

The result is checked against a fresh render of NEW. A mismatch
exits with status 1.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldTree, err := loadTree(args[0])
			if err != nil {
				return err
			}
			newTree, err := loadTree(args[1])
			if err != nil {
				return err
			}

			rec := perf.NewRecorder()
			doc := htmldom.NewDocument()
			r := reconcile.New(doc, doc.Root(), reconcile.WithMiddleware(middleware.Timing(rec)))

			ctx := cmd.Context()
			if err := r.Update(ctx, oldTree); err != nil {
				return reconcileError(err).WithFile(args[0])
			}
			if err := r.Update(ctx, newTree); err != nil {
				return reconcileError(err).WithFile(args[1])
			}

			got := doc.HTML()
			want, err := htmldom.Render(newTree)
			if err != nil {
				return reconcileError(err).WithFile(args[1])
			}

			fmt.Fprintln(cmd.OutOrStdout(), got)
			if timing {
				cmd.PrintErr(rec.Report())
			}
			if got != want {
				return verrors.New("VT023").
					WithDetail(fmt.Sprintf("got:  %s\nwant: %s", got, want))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&timing, "timing", false, "Print mount and patch timings to stderr")

	return cmd
}

// reconcileError maps a reconcile failure to its coded error.
func reconcileError(err error) *verrors.Error {
	code := "VT022"
	switch reconcile.KindName(err) {
	case "create":
		code = "VT020"
	case "path":
		code = "VT021"
	}
	return verrors.New(code).Wrap(err)
}
