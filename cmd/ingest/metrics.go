package main

import (
	"log/slog"
	"strings"

	"ingest/internal/config"
	"ingest/internal/metrics"
	"ingest/internal/metrics/datadog"
	"ingest/internal/metrics/prompush"
)

const (
	defaultPushgatewayURL = "http://localhost:9091"
	defaultStatsdAddr     = "127.0.0.1:8125"
)

// firstOf returns the first non-blank value.
func firstOf(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// newMetricsBackend picks the backend: flag, then pipeline file, then env.
// A backend that fails to start is logged and replaced by a nop so metrics
// never fail a load.
func newMetricsBackend(p config.Pipeline, f *runFlags, runID string, getenv config.Getenv, log *slog.Logger) metrics.Backend {
	name := firstOf(f.metricsBackend, p.Metrics.Backend, getenv("METRICS_BACKEND"), "none")

	switch name {
	case "pushgateway":
		url := firstOf(f.pushgatewayURL, p.Metrics.PushgatewayURL, getenv("PUSHGATEWAY_URL"), defaultPushgatewayURL)
		b, err := prompush.NewBackend(p.Job, url)
		if err != nil {
			log.Warn("metrics: pushgateway backend unavailable; using nop", "err", err)
			return metrics.Nop{}
		}
		log.Debug("metrics enabled", "backend", name, "url", url, "job", p.Job)
		return b.Grouping("run_id", runID)

	case "datadog":
		addr := firstOf(f.statsdAddr, p.Metrics.StatsdAddr, getenv("STATSD_ADDR"), defaultStatsdAddr)
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       addr,
			GlobalTags: []string{"job:" + p.Job, "run_id:" + runID},
		})
		if err != nil {
			log.Warn("metrics: datadog backend unavailable; using nop", "err", err)
			return metrics.Nop{}
		}
		log.Debug("metrics enabled", "backend", name, "addr", addr, "job", p.Job)
		return b

	case "none":
		log.Debug("metrics disabled")
	default:
		log.Warn("metrics: unknown backend; metrics disabled", "backend", name)
	}
	return metrics.Nop{}
}
