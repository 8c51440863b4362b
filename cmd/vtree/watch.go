package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	verrors "github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/internal/watch"
	"github.com/vango-dev/vtree/pkg/vdom"
)

func watchCmd() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Print patches each time FILE changes",
		Long: `Watch FILE and print the patches from its previous version
to the new one on every save. Unparseable saves are reported and
skipped; the next good save is diffed against the last good one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], debounce)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 100*time.Millisecond, "Quiet period before a change is reported")

	return cmd
}

// treeWatcher diffs successive versions of one file.
type treeWatcher struct {
	path   string
	out    io.Writer
	errOut io.Writer

	mu   sync.Mutex
	prev *vdom.VNode
}

func (tw *treeWatcher) onChange(c watch.Change) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if c.Removed {
		fmt.Fprintf(tw.out, "%s %s removed\n", gray(time.Now().Format(time.TimeOnly)), tw.path)
		return
	}
	next, err := loadTree(tw.path)
	if err != nil {
		verrors.Fprint(tw.errOut, err)
		return
	}
	fmt.Fprintf(tw.out, "%s %s\n", gray(time.Now().Format(time.TimeOnly)), tw.path)
	printPatches(tw.out, vdom.Diff(tw.prev, next))
	tw.prev = next
}

func runWatch(ctx context.Context, out, errOut io.Writer, path string, debounce time.Duration) error {
	initial, err := loadTree(path)
	if err != nil {
		return err
	}
	tw := &treeWatcher{path: path, out: out, errOut: errOut, prev: initial}

	w := watch.NewWatcher(watch.WatcherConfig{
		Paths:    []string{path},
		Debounce: debounce,
	})
	w.OnChange(tw.onChange)

	success(out, "Watching %s", path)
	err = w.Start(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return verrors.New("VT161").WithFile(path).Wrap(err)
	}
	return nil
}
