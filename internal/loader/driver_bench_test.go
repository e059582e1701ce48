package loader

import (
	"context"
	"testing"

	"ingest/internal/chunk"
	"ingest/internal/config"
	"ingest/internal/ddl"
	"ingest/internal/storage"
)

type discardRepo struct{}

func (discardRepo) Replace(_ context.Context, _ string, _ []ddl.Column, rows [][]any) (int64, error) {
	return int64(len(rows)), nil
}

func (discardRepo) Append(_ context.Context, _ string, _ []ddl.Column, rows [][]any) (int64, error) {
	return int64(len(rows)), nil
}

func (discardRepo) Close() {}

// BenchmarkDriverLoad measures the in-memory hot path: batch slicing,
// string to typed coercion and the per-batch digest, with a repository that
// only counts rows.
//
//	go test ./internal/loader -run=^$ -bench ^BenchmarkDriverLoad$ -cpuprofile cpu.out -memprofile mem.out -count=1
func BenchmarkDriverLoad(b *testing.B) {
	cols := []ddl.Column{
		{Name: "vendorid", Type: ddl.Text},
		{Name: "tpep_pickup_datetime", Type: ddl.Text},
		{Name: "passenger_count", Type: ddl.Text},
		{Name: "store_and_fwd_flag", Type: ddl.Text},
		{Name: "pickup_zone", Type: ddl.Text},
	}
	job := Job{
		Dataset: config.Dataset{Name: "bench", Transform: []config.Transform{{
			Kind: "coerce",
			Options: config.Options{"types": map[string]any{
				"vendorid":             "int",
				"tpep_pickup_datetime": "timestamp",
				"passenger_count":      "int",
				"store_and_fwd_flag":   "bool",
			}},
		}}},
		Table: "yellow_taxi_data",
	}

	// Coercion rewrites rows in place, so each iteration gets fresh strings.
	fresh := func(n int) [][]any {
		rows := make([][]any, n)
		for i := range rows {
			rows[i] = []any{"1", "2021-01-01 00:30:10", "1", "N", "Upper East Side North"}
		}
		return rows
	}

	orig := openReaderFn
	b.Cleanup(func() { openReaderFn = orig })

	const rowsPerOp = 10_000
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		rows := fresh(rowsPerOp)
		openReaderFn = func(_ context.Context, _ config.Dataset, size int, _ chunk.Options) (chunk.Reader, error) {
			return chunk.NewSliceReader(cols, rows, size, nil), nil
		}
		d := NewDriver(Config{ChunkSize: 4096}, storage.NewTableWriter(discardRepo{}), nil)
		b.StartTimer()

		if _, err := d.Load(context.Background(), job); err != nil {
			b.Fatalf("Load: %v", err)
		}
	}
}
