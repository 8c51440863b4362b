package reconcile

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// Reconciler holds the currently rendered tree and turns new snapshots into
// Renderer calls.
type Reconciler struct {
	renderer   Renderer
	root       Handle
	current    *vdom.VNode
	middleware []Middleware
	logger     *slog.Logger

	// busy guards against overlapping Update calls; it does not queue.
	busy atomic.Bool

	seq   uint64
	stats Stats
}

// Stats counts reconciliation outcomes.
type Stats struct {
	Mounts         uint64 // Successful mounts
	Patches        uint64 // Successful patch cycles
	Failures       uint64 // Failed cycles
	PatchesApplied uint64 // Individual patches applied, including those in failed cycles
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger. Default: slog.Default() with component=reconcile.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMiddleware appends cycle middleware. Middleware runs in the order given.
func WithMiddleware(mw ...Middleware) Option {
	return func(r *Reconciler) {
		r.middleware = append(r.middleware, mw...)
	}
}

// WithInitial adopts a tree that is already rendered under root, so the
// first Update diffs against it instead of mounting.
func WithInitial(tree *vdom.VNode) Option {
	return func(r *Reconciler) {
		r.current = tree
	}
}

// New creates a Reconciler that renders under root.
func New(renderer Renderer, root Handle, opts ...Option) *Reconciler {
	r := &Reconciler{
		renderer: renderer,
		root:     root,
		logger:   slog.Default().With("component", "reconcile"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Update brings the rendering in line with next.
//
// With no current tree, next is mounted with one Create and one Attach.
// Otherwise the current tree is diffed against next and the patches are
// applied in order. next becomes the current tree only if every step
// succeeds; on failure the current tree is left as it was and the error
// is returned. next must not be modified after it is handed over.
//
// ctx is passed to middleware. A cycle that has started always runs to
// completion or to its first failure.
func (r *Reconciler) Update(ctx context.Context, next *vdom.VNode) error {
	if next == nil {
		return ErrNilTree
	}
	if !r.busy.CompareAndSwap(false, true) {
		return ErrConcurrentUpdate
	}
	defer r.busy.Store(false)

	r.seq++
	c := &Cycle{
		Seq:  r.seq,
		Mode: ModePatch,
		Prev: r.current,
		Next: next,
	}
	if r.current == nil {
		c.Mode = ModeMount
	}

	err := compose(ctx, c, r.middleware, func(ctx context.Context) error {
		c.Err = r.run(c)
		return c.Err
	})
	if err != nil {
		r.stats.Failures++
	}
	return err
}

// run executes the cycle without middleware.
func (r *Reconciler) run(c *Cycle) error {
	if c.Mode == ModeMount {
		if err := r.mount(c.Next); err != nil {
			r.logger.Debug("mount failed", "error", err)
			return err
		}
		r.current = c.Next
		r.stats.Mounts++
		r.logger.Debug("mounted", "nodes", vdom.Count(c.Next))
		return nil
	}

	start := time.Now()
	c.Patches = vdom.Diff(c.Prev, c.Next)
	c.DiffDuration = time.Since(start)

	applied, err := Apply(r.renderer, r.root, c.Patches)
	c.Applied = applied
	r.stats.PatchesApplied += uint64(applied)
	if err != nil {
		r.logger.Debug("patch failed", "applied", applied, "patches", len(c.Patches), "error", err)
		return err
	}

	r.current = c.Next
	r.stats.Patches++
	r.logger.Debug("patched", "patches", len(c.Patches), "diff", c.DiffDuration)
	return nil
}

func (r *Reconciler) mount(tree *vdom.VNode) error {
	h, err := r.renderer.Create(tree)
	if err != nil {
		return mountError(ErrRenderCreate, StageCreate, err)
	}
	if err := r.renderer.Attach(r.root, h); err != nil {
		return mountError(ErrRenderMutation, StageAttach, err)
	}
	return nil
}

// Current returns the tree last rendered successfully, or nil before the
// first mount. The returned tree must not be modified.
func (r *Reconciler) Current() *vdom.VNode {
	return r.current
}

// Root returns the root handle the Reconciler renders under.
func (r *Reconciler) Root() Handle {
	return r.root
}

// Reset forgets the current tree so the next Update mounts from scratch.
// The caller is responsible for clearing the live rendering under root.
func (r *Reconciler) Reset() {
	r.current = nil
}

// Stats returns a copy of the outcome counters.
func (r *Reconciler) Stats() Stats {
	return r.stats
}
