// Package metrics records operational metrics for a load run behind a small,
// backend-agnostic interface.
//
// Concrete systems (Prometheus Pushgateway, Datadog) live in subpackages and
// implement Backend. A Recorder binds a Backend to one job; a nil Recorder
// or nil Backend records nothing, so instrumentation is always safe to call.
package metrics

import "time"

// Metric names shared by every backend.
const (
	StepTotal    = "etl_step_total"
	StepDuration = "etl_step_duration_seconds"
	RecordsTotal = "etl_records_total"
	BatchesTotal = "etl_batches_total"
)

// Label values.
const (
	StepLoad      = "load"
	KindInserted  = "inserted"
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}
func (Nop) Flush() error                             { return nil }

// Recorder records the pipeline's metrics for one job.
type Recorder struct {
	job     string
	backend Backend
}

// NewRecorder binds b to job. A nil b records nothing.
func NewRecorder(job string, b Backend) *Recorder {
	if b == nil {
		b = Nop{}
	}
	return &Recorder{job: job, backend: b}
}

// RecordStep counts one execution of step against table and observes its
// duration, labelled by outcome.
func (r *Recorder) RecordStep(step, table string, err error, d time.Duration) {
	if r == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}
	lbls := Labels{
		"job":    r.job,
		"step":   step,
		"table":  table,
		"status": status,
	}
	r.backend.IncCounter(StepTotal, 1, lbls)
	r.backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRows adds delta to the record counter of the given kind, e.g.
// "inserted". Non-positive deltas are ignored.
func (r *Recorder) RecordRows(table, kind string, delta int64) {
	if r == nil || delta <= 0 {
		return
	}
	r.backend.IncCounter(RecordsTotal, float64(delta), Labels{
		"job":   r.job,
		"table": table,
		"kind":  kind,
	})
}

// RecordBatches adds delta to the batch counter.
func (r *Recorder) RecordBatches(table string, delta int64) {
	if r == nil || delta <= 0 {
		return
	}
	r.backend.IncCounter(BatchesTotal, float64(delta), Labels{
		"job":   r.job,
		"table": table,
	})
}

// Flush delegates to the backend.
func (r *Recorder) Flush() error {
	if r == nil {
		return nil
	}
	return r.backend.Flush()
}
