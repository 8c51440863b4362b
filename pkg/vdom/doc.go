// Package vdom provides the virtual tree model and the positional differ.
//
// A VNode is either an element (tag, attributes, ordered children) or a
// text leaf. Two snapshots of a tree are compared with Diff, which returns
// an ordered list of Patch values. Every patch carries the Path of the node
// it targets, relative to the root of the old tree.
//
// # Element API
//
// Elements are created using variadic factory functions:
//
//	Div(Class("card"), ID("main"),
//	    H1(Text("Title")),
//	    P(Text("Content")),
//	)
//
// # Diffing
//
// Children are compared by index only. There is no key-based matching: a
// child that moves to another position is reported as edits at each index
// it affects. Attribute patches for a node always precede patches for its
// children and are emitted in ascending key order.
//
//	patches := vdom.Diff(prev, next)
//	for _, p := range patches {
//	    fmt.Println(p)
//	}
//
// Patches must be applied in the order returned. Later paths assume the
// earlier patches of the same list have been applied.
package vdom
