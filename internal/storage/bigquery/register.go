package bigquery

import (
	"context"

	"ingest/internal/storage"
)

var newRepository = NewRepository

// open maps the warehouse fields of storage.Config; DSN is unused here.
func open(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	r, closeFn, err := newRepository(ctx, Config{
		Project:         cfg.Project,
		Dataset:         cfg.Dataset,
		Location:        cfg.Location,
		CredentialsFile: cfg.CredentialsFile,
		Endpoint:        cfg.Endpoint,
	})
	if err != nil {
		return nil, err
	}
	return storage.WithClose(r, closeFn), nil
}

func init() { storage.Register("bigquery", open) }
