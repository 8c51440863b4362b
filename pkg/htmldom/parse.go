package htmldom

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/tdewolff/minify/v2"
	minhtml "github.com/tdewolff/minify/v2/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// ErrEmptyFragment is returned when a fragment holds no nodes after
// comments and whitespace are dropped.
var ErrEmptyFragment = errors.New("htmldom: empty fragment")

// ParseOption configures Parse.
type ParseOption func(*parseConfig)

type parseConfig struct {
	keepWhitespace bool
	minify         bool
}

// KeepWhitespace keeps whitespace-only text nodes.
func KeepWhitespace() ParseOption {
	return func(c *parseConfig) { c.keepWhitespace = true }
}

// WithMinify runs the input through an HTML minifier before parsing.
func WithMinify() ParseOption {
	return func(c *parseConfig) { c.minify = true }
}

var (
	minifier     *minify.M
	minifierOnce sync.Once
)

// getMinifier returns the shared HTML minifier. It is read-only after setup.
func getMinifier() *minify.M {
	minifierOnce.Do(func() {
		minifier = minify.New()
		minifier.AddFunc("text/html", minhtml.Minify)
	})
	return minifier
}

// Parse reads an HTML fragment into a single VNode. Several top-level nodes
// are wrapped in a <div>. Comments are dropped.
func Parse(r io.Reader, opts ...ParseOption) (*vdom.VNode, error) {
	var cfg parseConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.minify {
		var sb strings.Builder
		if err := getMinifier().Minify("text/html", &sb, r); err != nil {
			return nil, fmt.Errorf("htmldom: minify: %w", err)
		}
		r = strings.NewReader(sb.String())
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(r, body)
	if err != nil {
		return nil, fmt.Errorf("htmldom: parse: %w", err)
	}

	var top []*vdom.VNode
	for _, n := range nodes {
		if vn := fromNode(n, cfg.keepWhitespace); vn != nil {
			top = append(top, vn)
		}
	}

	switch len(top) {
	case 0:
		return nil, ErrEmptyFragment
	case 1:
		return top[0], nil
	default:
		return &vdom.VNode{Kind: vdom.KindElement, Tag: "div", Attrs: make(vdom.Attrs), Children: top}, nil
	}
}

// ParseString is Parse over a string.
func ParseString(s string, opts ...ParseOption) (*vdom.VNode, error) {
	return Parse(strings.NewReader(s), opts...)
}

// fromNode converts n, returning nil for nodes that have no VNode form.
func fromNode(n *html.Node, keepWhitespace bool) *vdom.VNode {
	switch n.Type {
	case html.TextNode:
		if !keepWhitespace && strings.TrimSpace(n.Data) == "" {
			return nil
		}
		return vdom.Text(n.Data)
	case html.ElementNode:
		vn := &vdom.VNode{
			Kind:  vdom.KindElement,
			Tag:   n.Data,
			Attrs: make(vdom.Attrs, len(n.Attr)),
		}
		for _, a := range n.Attr {
			key := a.Key
			if a.Namespace != "" {
				key = a.Namespace + ":" + a.Key
			}
			if _, dup := vn.Attrs[key]; !dup {
				vn.Attrs[key] = a.Val
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if child := fromNode(c, keepWhitespace); child != nil {
				vn.Children = append(vn.Children, child)
			}
		}
		return vn
	default:
		return nil
	}
}
