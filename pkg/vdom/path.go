package vdom

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidPath is returned by ParsePath for malformed input.
var ErrInvalidPath = errors.New("vdom: invalid path")

// Path is the sequence of child indices from the root to a node.
// The empty path is the root.
// Example: [0, 1, 3] means root -> child[0] -> child[1] -> child[3]
type Path []int

// Child returns a new path extended by index i.
// The result never shares a backing array with p.
func (p Path) Child(i int) Path {
	c := make(Path, len(p)+1)
	copy(c, p)
	c[len(p)] = i
	return c
}

// IsRoot reports whether the path addresses the root.
func (p Path) IsRoot() bool {
	return len(p) == 0
}

// Equal reports whether two paths address the same node.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// String returns "/" for the root and "/0/2" style for deeper nodes.
func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, i := range p {
		b.WriteByte('/')
		b.WriteString(strconv.Itoa(i))
	}
	return b.String()
}

// ParsePath parses the form produced by Path.String.
func ParsePath(s string) (Path, error) {
	if s == "/" || s == "" {
		return Path{}, nil
	}
	if !strings.HasPrefix(s, "/") {
		return nil, ErrInvalidPath
	}
	parts := strings.Split(s[1:], "/")
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		i, err := strconv.Atoi(part)
		if err != nil || i < 0 {
			return nil, ErrInvalidPath
		}
		p = append(p, i)
	}
	return p, nil
}
