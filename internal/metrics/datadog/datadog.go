// Package datadog sends load metrics to a DogStatsD agent. Recorder labels
// are sent as sorted "key:value" tags.
package datadog

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/DataDog/datadog-go/v5/statsd"

	"ingest/internal/metrics"
)

// Config points the backend at an agent.
type Config struct {
	// Addr is host:port for UDP or unix:///path for a socket.
	Addr string

	// Namespace prefixes every metric name, e.g. "ingest.".
	Namespace string

	// GlobalTags ride on every metric; the CLI sets job and run_id here.
	GlobalTags []string
}

// Backend implements metrics.Backend.
type Backend struct {
	c statsd.ClientInterface
}

// NewBackend dials the agent. UDP dialing never fails on a silent agent, so
// a nil error does not mean anything is listening.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, errors.New("datadog: no agent address")
	}
	opts := []statsd.Option{statsd.WithTags(cfg.GlobalTags)}
	if cfg.Namespace != "" {
		opts = append(opts, statsd.WithNamespace(cfg.Namespace))
	}
	c, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("datadog: dial %s: %w", cfg.Addr, err)
	}
	return &Backend{c: c}, nil
}

// IncCounter sends a count. Row and batch deltas are whole numbers; any
// fraction is rounded.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	_ = b.c.Count(name, int64(math.Round(delta)), tags(labels), 1)
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	_ = b.c.Histogram(name, value, tags(labels), 1)
}

// Flush drains the client buffer and closes the connection; the backend
// is unusable afterwards, which matches the one Flush per run the CLI does.
func (b *Backend) Flush() error {
	return b.c.Close()
}

func tags(l metrics.Labels) []string {
	if len(l) == 0 {
		return nil
	}
	out := make([]string, 0, len(l))
	for k, v := range l {
		out = append(out, k+":"+v)
	}
	slices.Sort(out)
	return out
}
