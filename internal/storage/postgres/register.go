package postgres

import (
	"context"

	"ingest/internal/storage"
)

// Swapped by tests that must not dial a server.
var newRepository = NewRepository

func open(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN})
	if err != nil {
		return nil, err
	}
	return storage.WithClose(r, closeFn), nil
}

func init() { storage.Register("postgres", open) }
