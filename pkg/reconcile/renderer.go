package reconcile

import "github.com/vango-dev/vtree/pkg/vdom"

// Handle is an opaque reference to a live output object owned by a Renderer.
type Handle = any

// Renderer is the capability set a host provides to materialize and mutate
// live output. The Reconciler only ever holds handles; it never inspects
// the objects behind them.
type Renderer interface {
	// Create materializes node and, for elements, all of its descendants.
	Create(node *vdom.VNode) (Handle, error)

	// Attach places child under parent. Used once per mount.
	Attach(parent, child Handle) error

	// Resolve locates the node at path inside the tree mounted under root.
	// The empty path names the node attached at mount.
	Resolve(root Handle, path vdom.Path) (Handle, error)

	SetAttribute(h Handle, key, value string) error
	RemoveAttribute(h Handle, key string) error
	SetText(h Handle, content string) error

	// AppendChildren materializes nodes and appends them after the last child of h.
	AppendChildren(h Handle, nodes []*vdom.VNode) error

	// RemoveTrailingChildren drops the last count children of h.
	RemoveTrailingChildren(h Handle, count int) error

	// Replace substitutes a freshly materialized node for h and returns its handle.
	Replace(h Handle, node *vdom.VNode) (Handle, error)
}
