package middleware

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vango-dev/vtree/pkg/perf"
	"github.com/vango-dev/vtree/pkg/reconcile"
)

// Logging logs every cycle at debug level and every failed cycle at error
// level. A nil logger uses slog.Default().
func Logging(logger *slog.Logger) reconcile.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "reconcile")

	return reconcile.MiddlewareFunc(func(ctx context.Context, c *reconcile.Cycle, next func(context.Context) error) error {
		err := next(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "cycle failed",
				"seq", c.Seq,
				"mode", c.Mode.String(),
				"kind", reconcile.KindName(err),
				"applied", c.Applied,
				"patches", len(c.Patches),
				"error", err,
			)
			return err
		}
		logger.DebugContext(ctx, "cycle",
			"seq", c.Seq,
			"mode", c.Mode.String(),
			"patches", len(c.Patches),
			"diff", c.DiffDuration,
		)
		return nil
	})
}

// Timing records each cycle on rec under "mount" or "patch", and the diff
// step of patch cycles under "diff".
func Timing(rec *perf.Recorder) reconcile.Middleware {
	return reconcile.MiddlewareFunc(func(ctx context.Context, c *reconcile.Cycle, next func(context.Context) error) error {
		var err error
		rec.Measure(c.Mode.String(), func() {
			err = next(ctx)
		})
		if c.Mode == reconcile.ModePatch && c.Patches != nil {
			rec.Record("diff", c.DiffDuration)
		}
		return err
	})
}

// Recover turns a panic in a later middleware or the renderer into an
// error, so one bad cycle does not take down the host.
func Recover(logger *slog.Logger) reconcile.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return reconcile.MiddlewareFunc(func(ctx context.Context, c *reconcile.Cycle, next func(context.Context) error) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorContext(ctx, "cycle panicked", "seq", c.Seq, "panic", r)
				err = &PanicError{Value: r}
			}
		}()
		return next(ctx)
	})
}

// PanicError is returned by Recover for a recovered panic.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("middleware: recovered panic: %v", e.Value)
}
