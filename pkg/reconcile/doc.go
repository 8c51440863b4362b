// Package reconcile applies tree snapshots to a live rendering.
//
// A Reconciler owns the "current" tree and a root handle supplied by a
// Renderer. The first Update mounts the whole tree with a single Create
// call. Later updates diff the current tree against the new one and replay
// the patches through the Renderer, in order, stopping at the first failure.
//
//	rec := reconcile.New(doc, doc.Root())
//	if err := rec.Update(ctx, page(state)); err != nil {
//	    var rerr *reconcile.Error
//	    if errors.As(err, &rerr) {
//	        log.Printf("patch %d at %s failed: %v", rerr.Index, rerr.Path, rerr)
//	    }
//	    rec.Reset() // next Update remounts
//	}
//
// # Failure Semantics
//
// A failed cycle is not rolled back. The live rendering may be partially
// patched while Current still returns the previous tree. Recovery is a full
// remount: call Reset, clear the rendering, and Update again.
//
// # Concurrency
//
// A Reconciler has a single owner. Update must not be called concurrently
// on one instance; an overlapping call fails with ErrConcurrentUpdate
// instead of queuing.
package reconcile
