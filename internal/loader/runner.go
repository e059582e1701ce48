package loader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ingest/internal/config"
	"ingest/internal/failure"
	"ingest/internal/storage"
)

// Test seam for the destination.
var newRepositoryFn = storage.New

// Runner executes a pipeline: one destination handle, datasets in declared
// order, stop at the first failed job.
type Runner struct {
	Logger    *slog.Logger
	Observers []Observer

	// Getenv resolves connection settings; nil uses os.Getenv.
	Getenv config.Getenv

	// StageDir holds downloaded http sources.
	StageDir string

	// RunID overrides the generated run id.
	RunID string
}

// RunSummary is the outcome of Run.
type RunSummary struct {
	RunID   string
	Jobs    []Summary
	Elapsed time.Duration
}

// Rows is the number of rows committed across all jobs.
func (s RunSummary) Rows() int64 {
	var n int64
	for _, j := range s.Jobs {
		n += j.Rows
	}
	return n
}

// Run loads every dataset of p. Jobs after a failed one are not started.
// The returned summary covers the jobs that ran, including the failed one.
func (r *Runner) Run(ctx context.Context, p config.Pipeline) (RunSummary, error) {
	start := time.Now()
	runID := r.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("run_id", runID, "job", p.Job)
	out := RunSummary{RunID: runID}

	cfg, err := StorageConfig(p.Storage, r.Getenv)
	if err != nil {
		return out, err
	}
	log.Info("connecting", "storage", cfg.Kind, "datasets", len(p.Datasets), "chunk_size", p.Runtime.ChunkSize)

	repo, err := newRepositoryFn(ctx, cfg)
	if err != nil {
		return out, fmt.Errorf("open %s destination: %w", cfg.Kind, err)
	}
	defer repo.Close()

	d := NewDriver(Config{
		RunID:     runID,
		ChunkSize: p.Runtime.ChunkSize,
		StageDir:  r.StageDir,
	}, storage.NewTableWriter(repo), log, r.Observers...)

	for _, ds := range p.Datasets {
		sum, err := d.Load(ctx, JobFor(ds))
		out.Jobs = append(out.Jobs, sum)
		if err != nil {
			out.Elapsed = time.Since(start)
			log.Error("run failed", "dataset", ds.Name, "error_kind", failure.KindOf(err), "elapsed", out.Elapsed.Round(time.Millisecond))
			return out, err
		}
	}

	out.Elapsed = time.Since(start)
	log.Info("run finished",
		"datasets", len(out.Jobs),
		"total_inserted", out.Rows(),
		"elapsed", out.Elapsed.Round(time.Millisecond),
	)
	return out, nil
}

// StorageConfig resolves s against the environment into a storage.Config.
func StorageConfig(s config.Storage, get config.Getenv) (storage.Config, error) {
	dsn, err := config.ResolveDSN(s, get)
	if err != nil {
		return storage.Config{}, err
	}
	bq := config.ResolveBigQuery(s.BigQuery, get)
	return storage.Config{
		Kind:            s.Kind,
		DSN:             dsn,
		Project:         bq.Project,
		Dataset:         bq.Dataset,
		Location:        bq.Location,
		CredentialsFile: bq.CredentialsFile,
		Endpoint:        bq.Endpoint,
	}, nil
}
