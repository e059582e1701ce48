package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"ingest/internal/metrics"
)

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	m := &dto.Metric{}
	if err := o.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("write histogram: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestNewBackendNeedsURL(t *testing.T) {
	if b, err := NewBackend("ny_taxi", ""); err == nil || b != nil {
		t.Fatalf("NewBackend without URL = %v, %v", b, err)
	}
}

func TestRecorderRoutesToCollectors(t *testing.T) {
	b, err := NewBackend("ny_taxi", "http://example.com")
	if err != nil {
		t.Fatal(err)
	}
	r := metrics.NewRecorder("ny_taxi", b)

	r.RecordBatches("yellow_taxi_data", 3)
	r.RecordRows("yellow_taxi_data", metrics.KindInserted, 250000)
	r.RecordStep(metrics.StepLoad, "yellow_taxi_data", nil, 90*time.Second)
	b.IncCounter("unknown_metric", 10, metrics.Labels{"foo": "bar"})

	if got := testutil.ToFloat64(b.batches.WithLabelValues("yellow_taxi_data")); got != 3 {
		t.Errorf("batches = %v", got)
	}
	if got := testutil.ToFloat64(b.rows.WithLabelValues("yellow_taxi_data", "inserted")); got != 250000 {
		t.Errorf("rows = %v", got)
	}
	if got := testutil.ToFloat64(b.steps.WithLabelValues("load", "yellow_taxi_data", "success")); got != 1 {
		t.Errorf("steps = %v", got)
	}
	if got := histogramCount(t, b.duration.WithLabelValues("load", "yellow_taxi_data", "success")); got != 1 {
		t.Errorf("duration samples = %d", got)
	}
}

func TestFlushPushesGroup(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		body   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		method, path, body = r.Method, r.URL.Path, string(b)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	b, err := NewBackend("ny_taxi", srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	b.Grouping("run_id", "abc")
	b.IncCounter(metrics.BatchesTotal, 1, metrics.Labels{"table": "zones"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if method != http.MethodPut {
		t.Errorf("method = %s, want PUT", method)
	}
	if !strings.Contains(path, "/job/ny_taxi") || !strings.Contains(path, "/run_id/abc") {
		t.Errorf("path = %q", path)
	}
	if body == "" {
		t.Error("empty push body")
	}
}

func TestFlushReportsGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	b, err := NewBackend("", srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Flush(); err == nil || !strings.Contains(err.Error(), "prompush: push") {
		t.Fatalf("err = %v", err)
	}
}
