package vtest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// treeOpts treats nil and empty attribute maps and child lists alike.
var treeOpts = []cmp.Option{cmpopts.EquateEmpty()}

// ExpectPatches asserts that got equals want, printing a diff otherwise.
//
// Example:
//
//	vtest.ExpectPatches(t, vdom.Diff(prev, next), []vdom.Patch{
//	    vdom.SetText(vdom.Path{0}, "b"),
//	})
func ExpectPatches(t testing.TB, got, want []vdom.Patch) {
	t.Helper()
	if diff := cmp.Diff(want, got, treeOpts...); diff != "" {
		t.Errorf("patches mismatch (-want +got):\n%s", diff)
	}
}

// ExpectTree asserts that the tree mounted in r equals want.
//
// Example:
//
//	vtest.ExpectTree(t, r, vdom.Div(vdom.Text("hi")))
func ExpectTree(t testing.TB, r *Renderer, want *vdom.VNode) {
	t.Helper()
	ExpectEqualTrees(t, r.Tree(), want)
}

// ExpectEqualTrees asserts that two trees are structurally equal.
func ExpectEqualTrees(t testing.TB, got, want *vdom.VNode) {
	t.Helper()
	if vdom.Equal(got, want) {
		return
	}
	if diff := cmp.Diff(want, got, treeOpts...); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
		return
	}
	t.Errorf("tree mismatch: want %s, got %s", want, got)
}

// ExpectCalls asserts the sequence of recorded method names.
func ExpectCalls(t testing.TB, r *Renderer, want ...string) {
	t.Helper()
	if diff := cmp.Diff(want, r.Methods(), treeOpts...); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}
