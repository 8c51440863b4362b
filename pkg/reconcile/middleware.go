package reconcile

import (
	"context"
	"time"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// Mode tells whether a cycle mounts a fresh tree or patches an existing one.
type Mode uint8

const (
	ModeMount Mode = iota
	ModePatch
)

// String returns the string representation of the Mode.
func (m Mode) String() string {
	switch m {
	case ModeMount:
		return "mount"
	case ModePatch:
		return "patch"
	default:
		return "unknown"
	}
}

// Cycle describes one Update call. The Reconciler fills it in as the cycle
// progresses, so middleware sees the complete record after next returns.
type Cycle struct {
	Seq          uint64        // 1-based cycle number for this Reconciler
	Mode         Mode          // Mount or patch
	Prev         *vdom.VNode   // Tree before the cycle, nil on mount
	Next         *vdom.VNode   // Target tree
	Patches      []vdom.Patch  // Diff output, nil on mount
	Applied      int           // Patches successfully applied
	DiffDuration time.Duration // Time spent in Diff
	Err          error         // Cycle outcome
}

// Middleware wraps a reconciliation cycle.
type Middleware interface {
	// Handle processes the cycle and optionally calls next.
	// Return nil without calling next to skip the cycle; the current tree
	// is then left unchanged.
	Handle(ctx context.Context, c *Cycle, next func(context.Context) error) error
}

// MiddlewareFunc is a function adapter for Middleware.
type MiddlewareFunc func(ctx context.Context, c *Cycle, next func(context.Context) error) error

// Handle implements Middleware.
func (f MiddlewareFunc) Handle(ctx context.Context, c *Cycle, next func(context.Context) error) error {
	return f(ctx, c, next)
}

// compose builds a chain from middleware and a final handler.
// Middleware is executed in order (first to last), with the handler at the end.
func compose(ctx context.Context, c *Cycle, mw []Middleware, handler func(context.Context) error) error {
	if len(mw) == 0 {
		return handler(ctx)
	}

	chain := handler
	for i := len(mw) - 1; i >= 0; i-- {
		m := mw[i]
		next := chain
		chain = func(ctx context.Context) error {
			return m.Handle(ctx, c, next)
		}
	}

	return chain(ctx)
}

// Chain creates a middleware that combines multiple middleware in order.
func Chain(middleware ...Middleware) Middleware {
	return MiddlewareFunc(func(ctx context.Context, c *Cycle, next func(context.Context) error) error {
		return compose(ctx, c, middleware, next)
	})
}
