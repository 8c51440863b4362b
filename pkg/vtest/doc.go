// Package vtest provides a recording, fault-injecting reconcile.Renderer
// and tree assertions for tests.
//
// # Quick Start
//
//	func TestCounter(t *testing.T) {
//	    r := vtest.NewRenderer()
//	    rec := reconcile.New(r, r.Root())
//
//	    if err := rec.Update(ctx, vdom.Div(vdom.Text("0"))); err != nil {
//	        t.Fatal(err)
//	    }
//	    if err := rec.Update(ctx, vdom.Div(vdom.Text("1"))); err != nil {
//	        t.Fatal(err)
//	    }
//	    vtest.ExpectTree(t, r, vdom.Div(vdom.Text("1")))
//	}
//
// # Fault Injection
//
// FailAt fails the n-th mutating call from now; FailOn fails the next call
// of a named method:
//
//	r.FailAt(3, errBoom)
//	r.FailOn("Resolve", errBoom)
//
// Every call, including the failing one, is recorded in Calls.
package vtest
