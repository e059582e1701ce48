// Package prompush pushes load metrics to a Prometheus Pushgateway.
//
// A load run exits long before any scrape, so collectors live in a private
// registry that Flush pushes once at the end. The Recorder's job becomes the
// gateway's job grouping key; other labels stay on the series.
package prompush

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"ingest/internal/metrics"
)

var (
	stepLabels = []string{"step", "table", "status"}

	// Dataset loads take from under a second (zones) to many minutes
	// (a year of FHV trips).
	durationBuckets = prometheus.ExponentialBuckets(0.25, 2, 14)
)

// Backend implements metrics.Backend.
type Backend struct {
	pusher *push.Pusher

	steps    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rows     *prometheus.CounterVec
	batches  *prometheus.CounterVec
}

// NewBackend registers the collectors and targets gatewayURL under job
// (default "ingest").
func NewBackend(job, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, errors.New("prompush: no gateway URL")
	}
	if job == "" {
		job = "ingest"
	}

	b := &Backend{
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Dataset loads by table and outcome.",
		}, stepLabels),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metrics.StepDuration,
			Help:    "Wall time of dataset loads.",
			Buckets: durationBuckets,
		}, stepLabels),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RecordsTotal,
			Help: "Rows written per table.",
		}, []string{"table", "kind"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.BatchesTotal,
			Help: "Batches written per table.",
		}, []string{"table"}),
	}

	reg := prometheus.NewRegistry()
	if err := registerAll(reg, b.steps, b.duration, b.rows, b.batches); err != nil {
		return nil, err
	}
	b.pusher = push.New(gatewayURL, job).Gatherer(reg)
	return b, nil
}

func registerAll(reg prometheus.Registerer, cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("prompush: register collector: %w", err)
		}
	}
	return nil
}

// Grouping adds a grouping key such as run_id, so two runs of the same job
// do not replace each other's series on the gateway.
func (b *Backend) Grouping(name, value string) *Backend {
	b.pusher = b.pusher.Grouping(name, value)
	return b
}

// IncCounter ignores names it has no collector for.
func (b *Backend) IncCounter(name string, delta float64, l metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		b.steps.WithLabelValues(l["step"], l["table"], l["status"]).Add(delta)
	case metrics.RecordsTotal:
		b.rows.WithLabelValues(l["table"], l["kind"]).Add(delta)
	case metrics.BatchesTotal:
		b.batches.WithLabelValues(l["table"]).Add(delta)
	}
}

func (b *Backend) ObserveHistogram(name string, v float64, l metrics.Labels) {
	if name == metrics.StepDuration {
		b.duration.WithLabelValues(l["step"], l["table"], l["status"]).Observe(v)
	}
}

// Flush replaces the job's group on the gateway with the current registry.
func (b *Backend) Flush() error {
	if err := b.pusher.Push(); err != nil {
		return fmt.Errorf("prompush: push: %w", err)
	}
	return nil
}
