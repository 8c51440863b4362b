package snapshot

import (
	"context"
	"fmt"
	"io"

	"github.com/vango-dev/vtree/internal/config"
)

// Open creates the store selected by cfg.Backend. An empty backend selects
// memory. The returned io.Closer releases backend resources and is never nil.
func Open(ctx context.Context, cfg config.SnapshotConfig) (Store, io.Closer, error) {
	switch cfg.Backend {
	case "", config.BackendMemory:
		return NewMemoryStore(), nopCloser{}, nil
	case config.BackendFile:
		s, err := NewFileStore(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	case config.BackendSQLite:
		s, err := OpenSQLite(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.BackendS3:
		return NewS3Store(NewS3Client(cfg.Region, cfg.Endpoint), cfg.Bucket, cfg.Prefix), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
