package loader

import (
	"fmt"
	"log/slog"
	"time"

	"ingest/internal/failure"
	"ingest/internal/metrics"
)

// Progress is emitted after each committed batch.
type Progress struct {
	RunID   string
	Dataset string
	Table   string

	// Index is the 0-based batch number.
	Index int
	// Rows were written by this batch; TotalRows by the job so far.
	Rows      int64
	TotalRows int64

	// Took is this batch's read-to-commit time; Elapsed is since the job began.
	Took    time.Duration
	Elapsed time.Duration

	// Digest is the xxh3 hash of the batch's columns and values.
	Digest uint64
}

// RowsPerSecond is the batch's write rate.
func (p Progress) RowsPerSecond() int64 {
	if p.Took <= 0 {
		return p.Rows
	}
	return int64(float64(p.Rows) / p.Took.Seconds())
}

// Observer receives load events. Observers run on the driver's goroutine and
// cannot change the outcome of a load.
type Observer interface {
	BatchLoaded(Progress)
	JobDone(Summary)
}

// LogObserver writes one line per batch and one per finished job.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o LogObserver) BatchLoaded(p Progress) {
	log := o.logger().With("run_id", p.RunID, "dataset", p.Dataset, "table", p.Table)
	if p.Index == 0 {
		log.Info(fmt.Sprintf("Table '%s' created (batch 1)", p.Table))
	}
	log.Info("batch loaded",
		"batch", p.Index+1,
		"rps", p.RowsPerSecond(),
		"inserted", p.Rows,
		"total_inserted", p.TotalRows,
		"elapsed", p.Elapsed.Round(time.Millisecond),
		"digest", fmt.Sprintf("%016x", p.Digest),
	)
}

func (o LogObserver) JobDone(s Summary) {
	log := o.logger().With("run_id", s.RunID, "dataset", s.Dataset, "table", s.Table)
	if s.Err != nil {
		log.Error("load failed",
			"state", s.State.String(),
			"error_kind", failure.KindOf(s.Err),
			"batches", s.Batches,
			"total_inserted", s.Rows,
			"elapsed", s.Elapsed.Round(time.Millisecond),
			"err", s.Err,
		)
		return
	}
	if s.Batches == 0 {
		log.Warn("dataset has no rows; table left untouched")
	}
	log.Info("completed successfully",
		"batches", s.Batches,
		"total_inserted", s.Rows,
		"elapsed", s.Elapsed.Round(time.Millisecond),
	)
}

// MetricsObserver feeds a metrics.Recorder.
type MetricsObserver struct {
	Recorder *metrics.Recorder
}

func (o MetricsObserver) BatchLoaded(p Progress) {
	o.Recorder.RecordBatches(p.Table, 1)
	o.Recorder.RecordRows(p.Table, metrics.KindInserted, p.Rows)
}

func (o MetricsObserver) JobDone(s Summary) {
	o.Recorder.RecordStep(metrics.StepLoad, s.Table, s.Err, s.Elapsed)
}
