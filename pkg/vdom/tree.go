package vdom

// Equal reports whether two trees are structurally equal: same kind, same
// tag or text, same attribute set and pairwise-equal children in order.
// A nil attribute map equals an empty one.
func Equal(a, b *VNode) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == KindText {
		return a.Text == b.Text
	}
	if a.Tag != b.Tag || len(a.Attrs) != len(b.Attrs) || len(a.Children) != len(b.Children) {
		return false
	}
	for k, av := range a.Attrs {
		if bv, ok := b.Attrs[k]; !ok || av != bv {
			return false
		}
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the tree.
func Clone(n *VNode) *VNode {
	if n == nil {
		return nil
	}
	c := &VNode{
		Kind: n.Kind,
		Tag:  n.Tag,
		Text: n.Text,
	}
	if n.Attrs != nil {
		c.Attrs = make(Attrs, len(n.Attrs))
		for k, v := range n.Attrs {
			c.Attrs[k] = v
		}
	}
	if len(n.Children) > 0 {
		c.Children = make([]*VNode, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = Clone(child)
		}
	}
	return c
}

// Count returns the number of nodes in the tree.
func Count(n *VNode) int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Children {
		total += Count(c)
	}
	return total
}

// Walk visits every node depth-first, parents before children.
// Returning false from fn skips the node's children.
func Walk(n *VNode, fn func(path Path, node *VNode) bool) {
	walk(n, Path{}, fn)
}

func walk(n *VNode, path Path, fn func(Path, *VNode) bool) {
	if n == nil {
		return
	}
	if !fn(path, n) {
		return
	}
	for i, c := range n.Children {
		walk(c, path.Child(i), fn)
	}
}

// At returns the node at path, or nil if the path does not exist.
func At(root *VNode, path Path) *VNode {
	n := root
	for _, i := range path {
		if n == nil || i < 0 || i >= len(n.Children) {
			return nil
		}
		n = n.Children[i]
	}
	return n
}
