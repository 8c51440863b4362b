package reconcile_test

import (
	"context"
	"errors"
	"testing"

	"github.com/vango-dev/vtree/pkg/reconcile"
	"github.com/vango-dev/vtree/pkg/vdom"
	"github.com/vango-dev/vtree/pkg/vtest"
)

var errBoom = errors.New("boom")

func newReconciler(opts ...reconcile.Option) (*reconcile.Reconciler, *vtest.Renderer) {
	r := vtest.NewRenderer()
	return reconcile.New(r, r.Root(), opts...), r
}

func TestMountCreatesOnce(t *testing.T) {
	rec, r := newReconciler()
	tree := vdom.Div(vdom.Class("app"), vdom.Ul(vdom.Li("a"), vdom.Li("b")), vdom.Text("tail"))

	if err := rec.Update(context.Background(), tree); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	vtest.ExpectCalls(t, r, "Create", "Attach")
	vtest.ExpectTree(t, r, tree)
	if rec.Current() != tree {
		t.Error("Current() should be the mounted tree")
	}
	if s := rec.Stats(); s.Mounts != 1 || s.Patches != 0 {
		t.Errorf("Stats() = %+v, want one mount", s)
	}
}

func TestUpdateRoundTrip(t *testing.T) {
	trees := []*vdom.VNode{
		vdom.Div(vdom.Text("0")),
		vdom.Div(vdom.Text("1")),
		vdom.Div(vdom.ID("x"), vdom.Text("1"), vdom.Span("new")),
		vdom.Div(vdom.Class("c"), vdom.P("swapped")),
		vdom.Section(vdom.H1("title")),
		vdom.Section(vdom.H1("title"), vdom.Ul(vdom.Li("1"), vdom.Li("2"), vdom.Li("3"))),
		vdom.Section(vdom.H1("title"), vdom.Ul(vdom.Li("1"))),
		vdom.Text("just text"),
		vdom.Text("other text"),
		vdom.Div(),
	}

	rec, r := newReconciler()
	for i, tree := range trees {
		if err := rec.Update(context.Background(), tree); err != nil {
			t.Fatalf("Update(%d) error = %v", i, err)
		}
		vtest.ExpectTree(t, r, tree)
	}
	if n := r.Count("Create"); n != 1 {
		t.Errorf("Create called %d times, want 1", n)
	}
	if s := rec.Stats(); s.Mounts != 1 || s.Patches != uint64(len(trees)-1) {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestUpdateIdenticalTreeIsNoop(t *testing.T) {
	rec, r := newReconciler()
	tree := vdom.Div(vdom.Class("a"), vdom.Span("x"))
	if err := rec.Update(context.Background(), tree); err != nil {
		t.Fatal(err)
	}
	r.ResetCalls()

	if err := rec.Update(context.Background(), vdom.Clone(tree)); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(r.Calls) != 0 {
		t.Errorf("expected no renderer calls, got %v", r.Calls)
	}
}

func TestUpdateNilTree(t *testing.T) {
	rec, _ := newReconciler()
	if err := rec.Update(context.Background(), nil); !errors.Is(err, reconcile.ErrNilTree) {
		t.Errorf("Update(nil) error = %v, want ErrNilTree", err)
	}
}

func TestUpdateFailureAbortsCycle(t *testing.T) {
	prev := vdom.Div(vdom.AttrOf("a", "1"), vdom.AttrOf("b", "1"), vdom.P("x"), vdom.Span("y"))
	next := vdom.Div(vdom.AttrOf("a", "2"), vdom.AttrOf("b", "2"), vdom.P("x2"), vdom.Span("y2"), vdom.Em())

	if n := len(vdom.Diff(prev, next)); n != 5 {
		t.Fatalf("fixture produces %d patches, want 5", n)
	}

	var seen *reconcile.Cycle
	rec, r := newReconciler(reconcile.WithMiddleware(reconcile.MiddlewareFunc(
		func(ctx context.Context, c *reconcile.Cycle, next func(context.Context) error) error {
			seen = c
			return next(ctx)
		})))
	if err := rec.Update(context.Background(), prev); err != nil {
		t.Fatal(err)
	}
	r.ResetCalls()
	r.FailAt(3, errBoom)

	err := rec.Update(context.Background(), next)
	if !errors.Is(err, reconcile.ErrRenderMutation) {
		t.Fatalf("Update() error = %v, want ErrRenderMutation", err)
	}
	if !errors.Is(err, errBoom) {
		t.Errorf("Update() error = %v, should wrap the renderer error", err)
	}

	var rerr *reconcile.Error
	if !errors.As(err, &rerr) {
		t.Fatalf("error %T is not *reconcile.Error", err)
	}
	if rerr.Index != 2 || rerr.Op != vdom.PatchSetText || rerr.Stage != reconcile.StageApply {
		t.Errorf("Error = %+v, want index 2 SetText apply", rerr)
	}
	if !rerr.Path.Equal(vdom.Path{0, 0}) {
		t.Errorf("Error.Path = %s, want /0/0", rerr.Path)
	}

	if rec.Current() != prev {
		t.Error("Current() changed after a failed cycle")
	}
	if seen == nil || seen.Applied != 2 || len(seen.Patches) != 5 || seen.Err == nil {
		t.Errorf("Cycle = %+v, want 2 of 5 applied with error", seen)
	}
	// Patches after the failure are never attempted.
	if n := r.Count("SetText"); n != 1 {
		t.Errorf("SetText called %d times, want 1", n)
	}
	if n := r.Count("AppendChildren"); n != 0 {
		t.Errorf("AppendChildren called %d times, want 0", n)
	}
	if s := rec.Stats(); s.Failures != 1 || s.PatchesApplied != 2 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestUpdateErrorKinds(t *testing.T) {
	tests := []struct {
		name    string
		prev    *vdom.VNode
		next    *vdom.VNode
		fail    string
		want    error
		stage   reconcile.Stage
		wantIdx int
	}{
		{"mount create", nil, vdom.Div(), "Create", reconcile.ErrRenderCreate, reconcile.StageCreate, -1},
		{"mount attach", nil, vdom.Div(), "Attach", reconcile.ErrRenderMutation, reconcile.StageAttach, -1},
		{"replace", vdom.Div(), vdom.Span(), "Replace", reconcile.ErrRenderCreate, reconcile.StageApply, 0},
		{"append", vdom.Ul(), vdom.Ul(vdom.Li("a")), "AppendChildren", reconcile.ErrRenderCreate, reconcile.StageApply, 0},
		{"resolve", vdom.Div("a"), vdom.Div("b"), "Resolve", reconcile.ErrPathResolution, reconcile.StageResolve, 0},
		{"set attr", vdom.Div(), vdom.Div(vdom.ID("x")), "SetAttribute", reconcile.ErrRenderMutation, reconcile.StageApply, 0},
		{"remove attr", vdom.Div(vdom.ID("x")), vdom.Div(), "RemoveAttribute", reconcile.ErrRenderMutation, reconcile.StageApply, 0},
		{"set text", vdom.Text("a"), vdom.Text("b"), "SetText", reconcile.ErrRenderMutation, reconcile.StageApply, 0},
		{"remove trailing", vdom.Ul(vdom.Li("a")), vdom.Ul(), "RemoveTrailingChildren", reconcile.ErrRenderMutation, reconcile.StageApply, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, r := newReconciler()
			if tt.prev != nil {
				if err := rec.Update(context.Background(), tt.prev); err != nil {
					t.Fatal(err)
				}
			}
			r.FailOn(tt.fail, errBoom)

			err := rec.Update(context.Background(), tt.next)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Update() error = %v, want %v", err, tt.want)
			}
			for _, kind := range []error{reconcile.ErrRenderCreate, reconcile.ErrPathResolution, reconcile.ErrRenderMutation} {
				if kind != tt.want && errors.Is(err, kind) {
					t.Errorf("Update() error = %v, also matches %v", err, kind)
				}
			}
			var rerr *reconcile.Error
			if !errors.As(err, &rerr) {
				t.Fatalf("error %T is not *reconcile.Error", err)
			}
			if rerr.Stage != tt.stage || rerr.Index != tt.wantIdx {
				t.Errorf("Error stage=%s index=%d, want %s %d", rerr.Stage, rerr.Index, tt.stage, tt.wantIdx)
			}
			if rec.Current() != tt.prev {
				t.Error("Current() changed after a failed cycle")
			}
		})
	}
}

func TestUpdateDivergedRendering(t *testing.T) {
	rec, r := newReconciler()
	if err := rec.Update(context.Background(), vdom.Div("a")); err != nil {
		t.Fatal(err)
	}
	r.Clear()

	err := rec.Update(context.Background(), vdom.Div("b"))
	if !errors.Is(err, reconcile.ErrPathResolution) {
		t.Errorf("Update() error = %v, want ErrPathResolution", err)
	}
	if !errors.Is(err, vtest.ErrNotMounted) {
		t.Errorf("Update() error = %v, should wrap ErrNotMounted", err)
	}
}

func TestResetRemounts(t *testing.T) {
	rec, r := newReconciler()
	if err := rec.Update(context.Background(), vdom.Div("a")); err != nil {
		t.Fatal(err)
	}

	rec.Reset()
	r.Clear()
	if rec.Current() != nil {
		t.Error("Current() should be nil after Reset")
	}

	next := vdom.P("b")
	if err := rec.Update(context.Background(), next); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if n := r.Count("Create"); n != 2 {
		t.Errorf("Create called %d times, want 2", n)
	}
	vtest.ExpectTree(t, r, next)
}

func TestWithInitial(t *testing.T) {
	r := vtest.NewRenderer()
	initial := vdom.Div("a")
	h, err := r.Create(initial)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Attach(r.Root(), h); err != nil {
		t.Fatal(err)
	}
	r.ResetCalls()

	rec := reconcile.New(r, r.Root(), reconcile.WithInitial(initial))
	if err := rec.Update(context.Background(), vdom.Div("b")); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	vtest.ExpectCalls(t, r, "Resolve", "SetText")
}

func TestConcurrentUpdateRejected(t *testing.T) {
	var rec *reconcile.Reconciler
	var inner error
	rec, _ = newReconciler(reconcile.WithMiddleware(reconcile.MiddlewareFunc(
		func(ctx context.Context, c *reconcile.Cycle, next func(context.Context) error) error {
			if c.Seq == 1 {
				inner = rec.Update(ctx, vdom.Span())
			}
			return next(ctx)
		})))

	if err := rec.Update(context.Background(), vdom.Div()); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !errors.Is(inner, reconcile.ErrConcurrentUpdate) {
		t.Errorf("nested Update() error = %v, want ErrConcurrentUpdate", inner)
	}
	if rec.Current().Tag != "div" {
		t.Errorf("Current().Tag = %q, want div", rec.Current().Tag)
	}
}

func TestMiddlewareOrderAndSkip(t *testing.T) {
	var order []string
	tag := func(name string) reconcile.Middleware {
		return reconcile.MiddlewareFunc(func(ctx context.Context, c *reconcile.Cycle, next func(context.Context) error) error {
			order = append(order, name+":before")
			err := next(ctx)
			order = append(order, name+":after")
			return err
		})
	}
	skip := reconcile.MiddlewareFunc(func(ctx context.Context, c *reconcile.Cycle, next func(context.Context) error) error {
		return nil
	})

	rec, r := newReconciler(reconcile.WithMiddleware(reconcile.Chain(tag("a"), tag("b")), skip))
	if err := rec.Update(context.Background(), vdom.Div()); err != nil {
		t.Fatal(err)
	}

	want := []string{"a:before", "b:before", "b:after", "a:after"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
	if rec.Current() != nil {
		t.Error("skipped cycle should not set Current()")
	}
	if len(r.Calls) != 0 {
		t.Errorf("skipped cycle made renderer calls: %v", r.Calls)
	}
}

func TestApplyInvalidPatch(t *testing.T) {
	r := vtest.NewRenderer()
	h, _ := r.Create(vdom.Ul(vdom.Li("a")))
	_ = r.Attach(r.Root(), h)

	n, err := reconcile.Apply(r, r.Root(), []vdom.Patch{vdom.RemoveTrailing(vdom.Path{}, 0)})
	if n != 0 || !errors.Is(err, reconcile.ErrInvalidPatch) {
		t.Errorf("Apply() = %d, %v; want 0, ErrInvalidPatch", n, err)
	}
}

func TestKindName(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&reconcile.Error{Kind: reconcile.ErrRenderCreate, Err: errBoom}, "create"},
		{&reconcile.Error{Kind: reconcile.ErrPathResolution, Err: errBoom}, "path"},
		{&reconcile.Error{Kind: reconcile.ErrRenderMutation, Err: errBoom}, "mutation"},
		{reconcile.ErrConcurrentUpdate, "concurrent"},
		{reconcile.ErrNilTree, "nil_tree"},
		{errBoom, "other"},
	}
	for _, tt := range tests {
		if got := reconcile.KindName(tt.err); got != tt.want {
			t.Errorf("KindName(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestModeString(t *testing.T) {
	if reconcile.ModeMount.String() != "mount" || reconcile.ModePatch.String() != "patch" {
		t.Error("unexpected Mode strings")
	}
}
