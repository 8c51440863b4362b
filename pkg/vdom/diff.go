package vdom

import "sort"

// Diff compares two VNode trees and returns the patches needed to transform prev into next.
// Neither tree is modified. Patches reference subtrees of next without copying them.
func Diff(prev, next *VNode) []Patch {
	var patches []Patch
	diff(prev, next, Path{}, &patches)
	return patches
}

// diff recursively compares nodes and appends patches.
// path is the position of prev in the tree being patched.
func diff(prev, next *VNode, path Path, patches *[]Patch) {
	// Both nil - nothing to do
	if prev == nil && next == nil {
		return
	}

	// Nothing rendered yet - replace with the whole subtree
	if prev == nil {
		*patches = append(*patches, ReplaceNode(path, next))
		return
	}

	// A nil target is rejected by callers before diffing
	if next == nil {
		return
	}

	// Different types - replace
	if prev.Kind != next.Kind {
		*patches = append(*patches, ReplaceNode(path, next))
		return
	}

	// Same type, diff by kind
	switch prev.Kind {
	case KindText:
		diffText(prev, next, path, patches)
	case KindElement:
		diffElement(prev, next, path, patches)
	default:
		*patches = append(*patches, ReplaceNode(path, next))
	}
}

// diffText compares text nodes.
func diffText(prev, next *VNode, path Path, patches *[]Patch) {
	if prev.Text != next.Text {
		*patches = append(*patches, SetText(path, next.Text))
	}
}

// diffElement compares element nodes.
func diffElement(prev, next *VNode, path Path, patches *[]Patch) {
	// Different tag - replace entire node, children are not inspected
	if prev.Tag != next.Tag {
		*patches = append(*patches, ReplaceNode(path, next))
		return
	}

	diffAttrs(prev, next, path, patches)
	diffChildren(prev, next, path, patches)
}

// diffAttrs emits attribute patches in ascending key order, sets and
// removes interleaved.
func diffAttrs(prev, next *VNode, path Path, patches *[]Patch) {
	if len(prev.Attrs) == 0 && len(next.Attrs) == 0 {
		return
	}

	keys := make([]string, 0, len(prev.Attrs)+len(next.Attrs))
	for key := range next.Attrs {
		keys = append(keys, key)
	}
	for key := range prev.Attrs {
		if _, exists := next.Attrs[key]; !exists {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		nextVal, inNext := next.Attrs[key]
		prevVal, inPrev := prev.Attrs[key]
		switch {
		case !inNext:
			*patches = append(*patches, RemoveAttr(path, key))
		case !inPrev || prevVal != nextVal:
			*patches = append(*patches, SetAttr(path, key, nextVal))
		}
	}
}

// diffChildren handles children using positional matching.
func diffChildren(prev, next *VNode, path Path, patches *[]Patch) {
	prevChildren := prev.Children
	nextChildren := next.Children

	common := len(prevChildren)
	if len(nextChildren) < common {
		common = len(nextChildren)
	}

	for i := 0; i < common; i++ {
		diff(prevChildren[i], nextChildren[i], path.Child(i), patches)
	}

	if len(nextChildren) > common {
		added := make([]*VNode, len(nextChildren)-common)
		copy(added, nextChildren[common:])
		*patches = append(*patches, AppendChildren(path, added))
	}

	if len(prevChildren) > common {
		*patches = append(*patches, RemoveTrailing(path, len(prevChildren)-common))
	}
}
