package sqlite

import (
	"context"

	"ingest/internal/storage"
)

// newRepository is replaced in tests.
var newRepository = NewRepository

func open(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN})
	if err != nil {
		return nil, err
	}
	return storage.WithClose(r, closeFn), nil
}

func init() { storage.Register("sqlite", open) }
