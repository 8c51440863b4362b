// Package component hosts one reconciled tree behind a framed byte
// protocol.
//
// A Host owns a renderer surface and a reconcile.Reconciler. Peers send it
// encoded protocol frames: a Tree frame reconciles the surface to the
// carried tree and is answered with the Patches frame that was applied, a
// Reset frame drops the current tree so the next Tree frame mounts afresh.
// Failures are answered with an Error frame.
//
// Lifecycle:
//
//	h := component.NewHost(factory, component.WithStore(store, "user-42"))
//	if err := h.Initialize(ctx, component.Config{Name: "inbox"}); err != nil {
//	    return err
//	}
//	defer h.Cleanup(ctx)
//
//	reply, err := h.ProcessMessage(ctx, msg)
//
// A Host can be initialized again after Cleanup. All methods are safe for
// concurrent use; messages are processed one at a time.
package component
