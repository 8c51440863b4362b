package vtest

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/vango-dev/vtree/pkg/reconcile"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// Errors returned by Renderer.
var (
	ErrBadHandle    = errors.New("vtest: handle not owned by renderer")
	ErrNotMounted   = errors.New("vtest: nothing mounted")
	ErrOutOfRange   = errors.New("vtest: child index out of range")
	ErrWrongKind    = errors.New("vtest: operation not valid for node kind")
	ErrInjected     = errors.New("vtest: injected failure")
	ErrDetached     = errors.New("vtest: node has no parent")
	ErrInvalidTree  = errors.New("vtest: invalid tree")
	errNilNode      = fmt.Errorf("%w: nil node", ErrInvalidTree)
	errEmptyElement = fmt.Errorf("%w: element without tag", ErrInvalidTree)
)

// Node is a live node owned by Renderer.
type Node struct {
	Tag      string
	Text     string
	IsText   bool
	Attrs    map[string]string
	Children []*Node

	parent *Node
}

// Call records one Renderer method invocation.
type Call struct {
	Method string
	Key    string
	Value  string
	Count  int
	Tag    string // Tag or "#text" of the node created or replaced
}

// String returns a compact form such as SetAttribute(class=a).
func (c Call) String() string {
	switch c.Method {
	case "SetAttribute":
		return fmt.Sprintf("SetAttribute(%s=%s)", c.Key, c.Value)
	case "RemoveAttribute":
		return fmt.Sprintf("RemoveAttribute(%s)", c.Key)
	case "SetText":
		return fmt.Sprintf("SetText(%q)", c.Value)
	case "AppendChildren", "RemoveTrailingChildren":
		return fmt.Sprintf("%s(%d)", c.Method, c.Count)
	case "Create", "Replace":
		return fmt.Sprintf("%s(%s)", c.Method, c.Tag)
	default:
		return c.Method + "()"
	}
}

// Renderer is an in-memory reconcile.Renderer for tests. It records every
// call and can be told to fail specific calls.
type Renderer struct {
	mu sync.Mutex

	root  *Node
	Calls []Call

	failAt    int
	failAtErr error
	mutations int
	failOn    map[string]error
}

var _ reconcile.Renderer = (*Renderer)(nil)

// NewRenderer creates a Renderer with an empty container root.
func NewRenderer() *Renderer {
	return &Renderer{root: &Node{Tag: "#root"}}
}

// Root returns the container handle that trees are attached under.
func (r *Renderer) Root() reconcile.Handle {
	return r.root
}

// FailAt makes the n-th mutating call from now fail with err. Every method
// except Resolve counts as mutating. n is 1-based; 0 disables.
func (r *Renderer) FailAt(n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failAt = n
	r.failAtErr = err
	r.mutations = 0
}

// FailOn makes the next call of method fail with err.
func (r *Renderer) FailOn(method string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn == nil {
		r.failOn = make(map[string]error)
	}
	r.failOn[method] = err
}

// ResetCalls clears the recorded calls.
func (r *Renderer) ResetCalls() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = nil
}

// Clear detaches everything under the container root.
func (r *Renderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.root.Children {
		c.parent = nil
	}
	r.root.Children = nil
}

// Count returns how many times method was called.
func (r *Renderer) Count(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Methods returns the recorded method names in call order.
func (r *Renderer) Methods() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		out[i] = c.Method
	}
	return out
}

// Tree returns the mounted tree as a VNode, or nil when nothing is mounted.
func (r *Renderer) Tree() *vdom.VNode {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.root.Children) == 0 {
		return nil
	}
	return toVNode(r.root.Children[0])
}

// record appends c and reports an injected failure if one is due.
func (r *Renderer) record(c Call) error {
	r.Calls = append(r.Calls, c)
	if err, ok := r.failOn[c.Method]; ok {
		delete(r.failOn, c.Method)
		return err
	}
	if c.Method == "Resolve" {
		return nil
	}
	r.mutations++
	if r.failAt > 0 && r.mutations == r.failAt {
		r.failAt = 0
		if r.failAtErr != nil {
			return r.failAtErr
		}
		return ErrInjected
	}
	return nil
}

func (r *Renderer) node(h reconcile.Handle) (*Node, error) {
	n, ok := h.(*Node)
	if !ok || n == nil {
		return nil, ErrBadHandle
	}
	return n, nil
}

// Create implements reconcile.Renderer.
func (r *Renderer) Create(node *vdom.VNode) (reconcile.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(Call{Method: "Create", Tag: tagOf(node)}); err != nil {
		return nil, err
	}
	return build(node)
}

// Attach implements reconcile.Renderer.
func (r *Renderer) Attach(parent, child reconcile.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(Call{Method: "Attach"}); err != nil {
		return err
	}
	p, err := r.node(parent)
	if err != nil {
		return err
	}
	c, err := r.node(child)
	if err != nil {
		return err
	}
	if p.IsText {
		return ErrWrongKind
	}
	c.parent = p
	p.Children = append(p.Children, c)
	return nil
}

// Resolve implements reconcile.Renderer.
func (r *Renderer) Resolve(root reconcile.Handle, path vdom.Path) (reconcile.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(Call{Method: "Resolve", Value: path.String()}); err != nil {
		return nil, err
	}
	n, err := r.node(root)
	if err != nil {
		return nil, err
	}
	if len(n.Children) == 0 {
		return nil, ErrNotMounted
	}
	n = n.Children[0]
	for _, i := range path {
		if i < 0 || i >= len(n.Children) {
			return nil, fmt.Errorf("%w: %d of %d at %s", ErrOutOfRange, i, len(n.Children), path)
		}
		n = n.Children[i]
	}
	return n, nil
}

// SetAttribute implements reconcile.Renderer.
func (r *Renderer) SetAttribute(h reconcile.Handle, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(Call{Method: "SetAttribute", Key: key, Value: value}); err != nil {
		return err
	}
	n, err := r.node(h)
	if err != nil {
		return err
	}
	if n.IsText {
		return ErrWrongKind
	}
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[key] = value
	return nil
}

// RemoveAttribute implements reconcile.Renderer.
func (r *Renderer) RemoveAttribute(h reconcile.Handle, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(Call{Method: "RemoveAttribute", Key: key}); err != nil {
		return err
	}
	n, err := r.node(h)
	if err != nil {
		return err
	}
	if n.IsText {
		return ErrWrongKind
	}
	delete(n.Attrs, key)
	return nil
}

// SetText implements reconcile.Renderer.
func (r *Renderer) SetText(h reconcile.Handle, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(Call{Method: "SetText", Value: content}); err != nil {
		return err
	}
	n, err := r.node(h)
	if err != nil {
		return err
	}
	if !n.IsText {
		return ErrWrongKind
	}
	n.Text = content
	return nil
}

// AppendChildren implements reconcile.Renderer.
func (r *Renderer) AppendChildren(h reconcile.Handle, nodes []*vdom.VNode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(Call{Method: "AppendChildren", Count: len(nodes)}); err != nil {
		return err
	}
	n, err := r.node(h)
	if err != nil {
		return err
	}
	if n.IsText {
		return ErrWrongKind
	}
	built := make([]*Node, 0, len(nodes))
	for _, vn := range nodes {
		c, err := build(vn)
		if err != nil {
			return err
		}
		built = append(built, c)
	}
	for _, c := range built {
		c.parent = n
	}
	n.Children = append(n.Children, built...)
	return nil
}

// RemoveTrailingChildren implements reconcile.Renderer.
func (r *Renderer) RemoveTrailingChildren(h reconcile.Handle, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(Call{Method: "RemoveTrailingChildren", Count: count}); err != nil {
		return err
	}
	n, err := r.node(h)
	if err != nil {
		return err
	}
	if count < 0 || count > len(n.Children) {
		return fmt.Errorf("%w: remove %d of %d", ErrOutOfRange, count, len(n.Children))
	}
	keep := len(n.Children) - count
	for _, c := range n.Children[keep:] {
		c.parent = nil
	}
	n.Children = n.Children[:keep]
	return nil
}

// Replace implements reconcile.Renderer.
func (r *Renderer) Replace(h reconcile.Handle, node *vdom.VNode) (reconcile.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(Call{Method: "Replace", Tag: tagOf(node)}); err != nil {
		return nil, err
	}
	old, err := r.node(h)
	if err != nil {
		return nil, err
	}
	p := old.parent
	if p == nil {
		return nil, ErrDetached
	}
	fresh, err := build(node)
	if err != nil {
		return nil, err
	}
	for i, c := range p.Children {
		if c == old {
			p.Children[i] = fresh
			fresh.parent = p
			old.parent = nil
			return fresh, nil
		}
	}
	return nil, ErrDetached
}

func build(vn *vdom.VNode) (*Node, error) {
	if vn == nil {
		return nil, errNilNode
	}
	if vn.IsText() {
		return &Node{IsText: true, Text: vn.Text}, nil
	}
	if strings.TrimSpace(vn.Tag) == "" {
		return nil, errEmptyElement
	}
	n := &Node{Tag: vn.Tag, Attrs: make(map[string]string, len(vn.Attrs))}
	for k, v := range vn.Attrs {
		n.Attrs[k] = v
	}
	for _, child := range vn.Children {
		c, err := build(child)
		if err != nil {
			return nil, err
		}
		c.parent = n
		n.Children = append(n.Children, c)
	}
	return n, nil
}

func toVNode(n *Node) *vdom.VNode {
	if n.IsText {
		return vdom.Text(n.Text)
	}
	vn := &vdom.VNode{Kind: vdom.KindElement, Tag: n.Tag, Attrs: make(vdom.Attrs, len(n.Attrs))}
	for k, v := range n.Attrs {
		vn.Attrs[k] = v
	}
	for _, c := range n.Children {
		vn.Children = append(vn.Children, toVNode(c))
	}
	return vn
}

func tagOf(vn *vdom.VNode) string {
	switch {
	case vn == nil:
		return "<nil>"
	case vn.IsText():
		return "#text"
	default:
		return vn.Tag
	}
}
