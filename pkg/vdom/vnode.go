package vdom

import (
	"sort"
	"strconv"
	"strings"
)

// VKind is the node type discriminator.
type VKind uint8

const (
	KindElement VKind = iota // <div>, <button>, etc.
	KindText                 // Plain text node
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	default:
		return "Unknown"
	}
}

// VNode is a virtual tree node.
type VNode struct {
	Kind     VKind    // Node type
	Tag      string   // Element tag name (e.g., "div")
	Attrs    Attrs    // Element attributes
	Children []*VNode // Child nodes, position is identity
	Text     string   // For KindText
}

// Attrs holds element attributes. Keys are unique by construction.
type Attrs map[string]string

// Keys returns the attribute keys in ascending order.
func (a Attrs) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsElement reports whether v is an element node.
func (v *VNode) IsElement() bool {
	return v != nil && v.Kind == KindElement
}

// IsText reports whether v is a text node.
func (v *VNode) IsText() bool {
	return v != nil && v.Kind == KindText
}

// Attr returns the value of an attribute and whether it is set.
func (v *VNode) Attr(key string) (string, bool) {
	if v == nil || v.Attrs == nil {
		return "", false
	}
	val, ok := v.Attrs[key]
	return val, ok
}

// String returns a compact debug form, e.g. div[class=a](text("hi")).
func (v *VNode) String() string {
	var b strings.Builder
	writeDebug(&b, v)
	return b.String()
}

func writeDebug(b *strings.Builder, v *VNode) {
	if v == nil {
		b.WriteString("<nil>")
		return
	}
	if v.Kind == KindText {
		b.WriteString("text(")
		b.WriteString(strconv.Quote(v.Text))
		b.WriteByte(')')
		return
	}
	b.WriteString(v.Tag)
	if len(v.Attrs) > 0 {
		b.WriteByte('[')
		for i, k := range v.Attrs.Keys() {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(v.Attrs[k])
		}
		b.WriteByte(']')
	}
	if len(v.Children) > 0 {
		b.WriteByte('(')
		for i, c := range v.Children {
			if i > 0 {
				b.WriteString(", ")
			}
			writeDebug(b, c)
		}
		b.WriteByte(')')
	}
}
