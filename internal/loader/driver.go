package loader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"ingest/internal/chunk"
	"ingest/internal/config"
	"ingest/internal/storage"
	"ingest/internal/transformer"
)

// Config is the per-run driver configuration.
type Config struct {
	RunID string

	// ChunkSize caps rows per batch; <= 0 uses config.DefaultChunkSize.
	ChunkSize int

	// StageDir holds downloaded http sources; empty uses os.TempDir().
	StageDir string
}

// Test seam; production opens sources through chunk.Open.
var openReaderFn = chunk.Open

// Driver loads jobs through a shared TableWriter. It is not safe for
// concurrent use.
type Driver struct {
	cfg       Config
	writer    *storage.TableWriter
	observers []Observer
	log       *slog.Logger
}

// NewDriver returns a Driver writing through w. A nil logger uses
// slog.Default().
func NewDriver(cfg Config, w *storage.TableWriter, log *slog.Logger, obs ...Observer) *Driver {
	if log == nil {
		log = slog.Default()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = config.DefaultChunkSize
	}
	return &Driver{cfg: cfg, writer: w, observers: obs, log: log}
}

// Load reads job's dataset batch by batch, normalizes each batch and writes
// it to job.Table. Batch 0 replaces the table; later batches append.
//
// The first failure stops the load and is returned as a *BatchError; no
// further batches are read and committed batches are not undone. A dataset
// with no rows completes with zero batches and does not touch the table.
func (d *Driver) Load(ctx context.Context, job Job) (sum Summary, err error) {
	start := time.Now()
	sum = Summary{
		RunID:   d.cfg.RunID,
		Dataset: job.Dataset.Name,
		Table:   job.Table,
		State:   InProgress,
	}
	log := d.log.With("run_id", d.cfg.RunID, "dataset", sum.Dataset, "table", sum.Table)

	defer func() {
		sum.Elapsed = time.Since(start)
		if err != nil {
			sum.State, sum.Err = Failed, err
		} else {
			sum.State = Completed
		}
		for _, o := range d.observers {
			o.JobDone(sum)
		}
	}()

	fail := func(index int, cause error) error {
		return &BatchError{Dataset: sum.Dataset, Table: sum.Table, Index: index, Err: cause}
	}

	norm, err := transformer.FromConfig(job.Dataset.Transform)
	if err != nil {
		return sum, fail(-1, err)
	}

	log.Debug("opening dataset", "chunk_size", d.cfg.ChunkSize, "coerce", norm.Columns())
	r, err := openReaderFn(ctx, job.Dataset, d.cfg.ChunkSize, chunk.Options{StageDir: d.cfg.StageDir, Logger: log})
	if err != nil {
		return sum, fail(-1, err)
	}
	defer func() {
		if cerr := r.Close(); cerr != nil {
			log.Warn("close source", "err", cerr)
		}
	}()

	for index := 0; ; index++ {
		batchStart := time.Now()

		b, err := r.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sum, fail(index, err)
		}
		// Cancellation only matters while there is still a batch to write.
		if err := ctx.Err(); err != nil {
			return sum, fail(index, err)
		}
		if err := norm.Apply(b); err != nil {
			return sum, fail(index, err)
		}
		n, err := d.writer.Write(ctx, job.Table, b, index == 0)
		if err != nil {
			return sum, fail(index, err)
		}

		sum.Batches++
		sum.Rows += n
		p := Progress{
			RunID:     sum.RunID,
			Dataset:   sum.Dataset,
			Table:     sum.Table,
			Index:     index,
			Rows:      n,
			TotalRows: sum.Rows,
			Took:      time.Since(batchStart),
			Elapsed:   time.Since(start),
			Digest:    chunk.Digest(b),
		}
		for _, o := range d.observers {
			o.BatchLoaded(p)
		}
	}
	return sum, nil
}
