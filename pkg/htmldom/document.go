package htmldom

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vango-dev/vtree/pkg/reconcile"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// Errors returned by Document.
var (
	ErrInvalidTag     = errors.New("htmldom: invalid tag")
	ErrPathOutOfRange = errors.New("htmldom: path out of range")
	ErrNotText        = errors.New("htmldom: not a text node")
	ErrNotElement     = errors.New("htmldom: not an element")
	ErrBadHandle      = errors.New("htmldom: handle is not an *html.Node")
	ErrDetached       = errors.New("htmldom: node has no parent")
	ErrNilNode        = errors.New("htmldom: nil node")
)

// Document is an HTML document fragment that implements reconcile.Renderer.
// A Document is not safe for concurrent use.
type Document struct {
	root *html.Node
}

var _ reconcile.Renderer = (*Document)(nil)

// NewDocument creates an empty document with a <div id="root"> container.
func NewDocument() *Document {
	return &Document{
		root: &html.Node{
			Type:     html.ElementNode,
			Data:     "div",
			DataAtom: atom.Div,
			Attr:     []html.Attribute{{Key: "id", Val: "root"}},
		},
	}
}

// Root returns the container handle.
func (d *Document) Root() reconcile.Handle {
	return d.root
}

// Clear removes everything under the container.
func (d *Document) Clear() {
	for c := d.root.FirstChild; c != nil; c = d.root.FirstChild {
		d.root.RemoveChild(c)
	}
}

// HTML serializes the mounted content, without the container.
func (d *Document) HTML() string {
	var sb strings.Builder
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		// Render only fails on write errors; strings.Builder never returns one.
		_ = html.Render(&sb, c)
	}
	return sb.String()
}

// Snapshot reads the live node graph back into a VNode, or nil when nothing
// is mounted.
func (d *Document) Snapshot() *vdom.VNode {
	if d.root.FirstChild == nil {
		return nil
	}
	return fromNode(d.root.FirstChild, true)
}

// Create implements reconcile.Renderer.
func (d *Document) Create(node *vdom.VNode) (reconcile.Handle, error) {
	return build(node)
}

// Attach implements reconcile.Renderer.
func (d *Document) Attach(parent, child reconcile.Handle) error {
	p, err := element(parent)
	if err != nil {
		return err
	}
	c, err := asNode(child)
	if err != nil {
		return err
	}
	if c.Parent != nil {
		c.Parent.RemoveChild(c)
	}
	p.AppendChild(c)
	return nil
}

// Resolve implements reconcile.Renderer.
func (d *Document) Resolve(root reconcile.Handle, path vdom.Path) (reconcile.Handle, error) {
	n, err := asNode(root)
	if err != nil {
		return nil, err
	}
	n = n.FirstChild
	if n == nil {
		return nil, fmt.Errorf("%w: nothing mounted", ErrPathOutOfRange)
	}
	for depth, i := range path {
		c := childAt(n, i)
		if c == nil {
			return nil, fmt.Errorf("%w: index %d at %s", ErrPathOutOfRange, i, path[:depth+1])
		}
		n = c
	}
	return n, nil
}

// SetAttribute implements reconcile.Renderer. Attributes stay sorted by key.
func (d *Document) SetAttribute(h reconcile.Handle, key, value string) error {
	n, err := element(h)
	if err != nil {
		return err
	}
	i := sort.Search(len(n.Attr), func(i int) bool { return n.Attr[i].Key >= key })
	if i < len(n.Attr) && n.Attr[i].Key == key {
		n.Attr[i].Val = value
		return nil
	}
	n.Attr = append(n.Attr, html.Attribute{})
	copy(n.Attr[i+1:], n.Attr[i:])
	n.Attr[i] = html.Attribute{Key: key, Val: value}
	return nil
}

// RemoveAttribute implements reconcile.Renderer.
func (d *Document) RemoveAttribute(h reconcile.Handle, key string) error {
	n, err := element(h)
	if err != nil {
		return err
	}
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
	return nil
}

// SetText implements reconcile.Renderer.
func (d *Document) SetText(h reconcile.Handle, content string) error {
	n, err := asNode(h)
	if err != nil {
		return err
	}
	if n.Type != html.TextNode {
		return fmt.Errorf("%w: <%s>", ErrNotText, n.Data)
	}
	n.Data = content
	return nil
}

// AppendChildren implements reconcile.Renderer. Nothing is appended if any
// node fails to build.
func (d *Document) AppendChildren(h reconcile.Handle, nodes []*vdom.VNode) error {
	n, err := element(h)
	if err != nil {
		return err
	}
	built := make([]*html.Node, 0, len(nodes))
	for _, vn := range nodes {
		c, err := build(vn)
		if err != nil {
			return err
		}
		built = append(built, c)
	}
	for _, c := range built {
		n.AppendChild(c)
	}
	return nil
}

// RemoveTrailingChildren implements reconcile.Renderer.
func (d *Document) RemoveTrailingChildren(h reconcile.Handle, count int) error {
	n, err := asNode(h)
	if err != nil {
		return err
	}
	if have := childCount(n); count > have {
		return fmt.Errorf("%w: remove %d of %d children", ErrPathOutOfRange, count, have)
	}
	for ; count > 0; count-- {
		n.RemoveChild(n.LastChild)
	}
	return nil
}

// Replace implements reconcile.Renderer.
func (d *Document) Replace(h reconcile.Handle, node *vdom.VNode) (reconcile.Handle, error) {
	old, err := asNode(h)
	if err != nil {
		return nil, err
	}
	if old.Parent == nil {
		return nil, ErrDetached
	}
	fresh, err := build(node)
	if err != nil {
		return nil, err
	}
	parent := old.Parent
	parent.InsertBefore(fresh, old)
	parent.RemoveChild(old)
	return fresh, nil
}

// Render mounts tree into a fresh document and returns its HTML.
func Render(tree *vdom.VNode) (string, error) {
	d := NewDocument()
	h, err := d.Create(tree)
	if err != nil {
		return "", err
	}
	if err := d.Attach(d.Root(), h); err != nil {
		return "", err
	}
	return d.HTML(), nil
}

func asNode(h reconcile.Handle) (*html.Node, error) {
	n, ok := h.(*html.Node)
	if !ok || n == nil {
		return nil, ErrBadHandle
	}
	return n, nil
}

func element(h reconcile.Handle) (*html.Node, error) {
	n, err := asNode(h)
	if err != nil {
		return nil, err
	}
	if n.Type != html.ElementNode {
		return nil, fmt.Errorf("%w: %q", ErrNotElement, n.Data)
	}
	return n, nil
}

func childAt(n *html.Node, i int) *html.Node {
	if i < 0 {
		return nil
	}
	c := n.FirstChild
	for ; c != nil && i > 0; i-- {
		c = c.NextSibling
	}
	return c
}

func childCount(n *html.Node) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count++
	}
	return count
}

// validTag rejects tags the HTML serializer cannot round-trip.
func validTag(tag string) bool {
	return tag != "" && !strings.ContainsAny(tag, " \t\n\r\f<>/")
}

func build(vn *vdom.VNode) (*html.Node, error) {
	if vn == nil {
		return nil, ErrNilNode
	}
	if vn.IsText() {
		return &html.Node{Type: html.TextNode, Data: vn.Text}, nil
	}
	if !validTag(vn.Tag) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTag, vn.Tag)
	}
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     vn.Tag,
		DataAtom: atom.Lookup([]byte(vn.Tag)),
	}
	for _, k := range vn.Attrs.Keys() {
		n.Attr = append(n.Attr, html.Attribute{Key: k, Val: vn.Attrs[k]})
	}
	for _, child := range vn.Children {
		c, err := build(child)
		if err != nil {
			return nil, err
		}
		n.AppendChild(c)
	}
	return n, nil
}
