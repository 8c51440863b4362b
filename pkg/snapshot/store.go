// Package snapshot persists the current tree of a host between sessions.
//
// Trees are stored in the binary protocol encoding under a caller-chosen
// key. Four backends are provided: memory, a directory of files, SQLite and
// S3. Every Store is safe for concurrent use.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vango-dev/vtree/pkg/protocol"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// Store errors.
var (
	// ErrNotFound is returned by Load when no snapshot exists for the key.
	ErrNotFound = errors.New("snapshot: not found")

	// ErrInvalidKey is returned for empty keys and keys containing path
	// separators or "..".
	ErrInvalidKey = errors.New("snapshot: invalid key")

	// ErrUnknownBackend is returned by Open for an unrecognized backend name.
	ErrUnknownBackend = errors.New("snapshot: unknown backend")
)

// Store loads and saves trees by key.
type Store interface {
	// Load returns the tree saved under key, or ErrNotFound.
	Load(ctx context.Context, key string) (*vdom.VNode, error)

	// Save stores node under key, replacing any previous snapshot.
	Save(ctx context.Context, key string, node *vdom.VNode) error

	// Delete removes the snapshot under key. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, key string) error
}

// ValidateKey checks that key is usable by every backend.
func ValidateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func encode(node *vdom.VNode) ([]byte, error) {
	data, err := protocol.MarshalVNode(node)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*vdom.VNode, error) {
	node, err := protocol.UnmarshalVNode(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	return node, nil
}
