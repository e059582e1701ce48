package storage

import (
	"context"
	"errors"
	"testing"

	"ingest/internal/chunk"
	"ingest/internal/ddl"
	"ingest/internal/failure"
)

type call struct {
	op    string
	table string
	rows  int
}

// fakeRepo records calls and optionally fails the nth write.
type fakeRepo struct {
	calls  []call
	failOn int
	err    error
}

func (f *fakeRepo) write(op, table string, rows [][]any) (int64, error) {
	f.calls = append(f.calls, call{op: op, table: table, rows: len(rows)})
	if f.failOn > 0 && len(f.calls) == f.failOn {
		return 0, f.err
	}
	return int64(len(rows)), nil
}

func (f *fakeRepo) Replace(_ context.Context, table string, _ []ddl.Column, rows [][]any) (int64, error) {
	return f.write("replace", table, rows)
}

func (f *fakeRepo) Append(_ context.Context, table string, _ []ddl.Column, rows [][]any) (int64, error) {
	return f.write("append", table, rows)
}

func (f *fakeRepo) Close() {}

func batchOf(cols []ddl.Column, n int) *chunk.Batch {
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = make([]any, len(cols))
	}
	return &chunk.Batch{Columns: cols, Rows: rows}
}

var taxiCols = []ddl.Column{{Name: "vendor_id", Type: ddl.Int}, {Name: "fare", Type: ddl.Float}}

func TestTableWriter_ReplaceOnceThenAppend(t *testing.T) {
	repo := &fakeRepo{}
	w := NewTableWriter(repo)
	ctx := context.Background()

	if got := w.State("trips"); got != Absent {
		t.Fatalf("initial state = %s, want ABSENT", got)
	}

	var total int64
	for i, n := range []int{3, 3, 1} {
		got, err := w.Write(ctx, "trips", batchOf(taxiCols, n), i == 0)
		if err != nil {
			t.Fatalf("batch %d: %v", i, err)
		}
		total += got
		if i == 0 && w.State("trips") != Initialized {
			t.Fatalf("after first batch state = %s", w.State("trips"))
		}
	}

	if total != 7 {
		t.Fatalf("total = %d, want 7", total)
	}
	if w.State("TRIPS") != Appending {
		t.Fatalf("final state = %s, want APPENDING", w.State("TRIPS"))
	}
	want := []call{{"replace", "trips", 3}, {"append", "trips", 3}, {"append", "trips", 1}}
	if len(repo.calls) != len(want) {
		t.Fatalf("calls = %+v", repo.calls)
	}
	for i := range want {
		if repo.calls[i] != want[i] {
			t.Fatalf("call %d = %+v, want %+v", i, repo.calls[i], want[i])
		}
	}
}

func TestTableWriter_AppendWithoutInit(t *testing.T) {
	repo := &fakeRepo{}
	w := NewTableWriter(repo)

	_, err := w.Write(context.Background(), "zones", batchOf(taxiCols, 1), false)
	if !errors.Is(err, failure.ErrSchemaConflict) {
		t.Fatalf("err = %v, want schema conflict", err)
	}
	if len(repo.calls) != 0 {
		t.Fatalf("repository was called: %+v", repo.calls)
	}
}

func TestTableWriter_ColumnConflicts(t *testing.T) {
	cases := map[string][]ddl.Column{
		"extra column":   {{Name: "vendor_id", Type: ddl.Int}, {Name: "fare", Type: ddl.Float}, {Name: "tip", Type: ddl.Float}},
		"renamed column": {{Name: "vendor_id", Type: ddl.Int}, {Name: "total", Type: ddl.Float}},
		"type changed":   {{Name: "vendor_id", Type: ddl.Text}, {Name: "fare", Type: ddl.Float}},
	}
	for name, cols := range cases {
		t.Run(name, func(t *testing.T) {
			repo := &fakeRepo{}
			w := NewTableWriter(repo)
			ctx := context.Background()
			if _, err := w.Write(ctx, "trips", batchOf(taxiCols, 2), true); err != nil {
				t.Fatal(err)
			}
			_, err := w.Write(ctx, "trips", batchOf(cols, 2), false)
			if !errors.Is(err, failure.ErrSchemaConflict) {
				t.Fatalf("err = %v, want schema conflict", err)
			}
			if len(repo.calls) != 1 {
				t.Fatalf("append reached the repository: %+v", repo.calls)
			}
			if w.State("trips") != Initialized {
				t.Fatalf("state = %s, want INITIALIZED", w.State("trips"))
			}
		})
	}
}

func TestTableWriter_ReorderedColumnsAppend(t *testing.T) {
	w := NewTableWriter(&fakeRepo{})
	ctx := context.Background()
	if _, err := w.Write(ctx, "trips", batchOf(taxiCols, 1), true); err != nil {
		t.Fatal(err)
	}
	swapped := []ddl.Column{taxiCols[1], taxiCols[0]}
	if _, err := w.Write(ctx, "trips", batchOf(swapped, 1), false); err != nil {
		t.Fatalf("reordered append: %v", err)
	}
}

func TestTableWriter_BackendErrors(t *testing.T) {
	t.Run("unclassified becomes write failure", func(t *testing.T) {
		boom := errors.New("connection reset")
		w := NewTableWriter(&fakeRepo{failOn: 1, err: boom})
		_, err := w.Write(context.Background(), "trips", batchOf(taxiCols, 1), true)
		if !errors.Is(err, failure.ErrWriteFailure) || !errors.Is(err, boom) {
			t.Fatalf("err = %v", err)
		}
		if w.State("trips") != Absent {
			t.Fatalf("failed replace changed state to %s", w.State("trips"))
		}
	})

	t.Run("classified kind is kept", func(t *testing.T) {
		schemaErr := failure.Schema(errors.New("column \"fare\" is of type bigint"), "copy trips")
		w := NewTableWriter(&fakeRepo{failOn: 2, err: schemaErr})
		ctx := context.Background()
		if _, err := w.Write(ctx, "trips", batchOf(taxiCols, 1), true); err != nil {
			t.Fatal(err)
		}
		_, err := w.Write(ctx, "trips", batchOf(taxiCols, 1), false)
		if got := failure.KindOf(err); got != failure.KindSchemaConflict {
			t.Fatalf("kind = %s, want %s (err %v)", got, failure.KindSchemaConflict, err)
		}
	})
}

func TestRegistry(t *testing.T) {
	Register("fake-test", func(context.Context, Config) (Repository, error) { return &fakeRepo{}, nil })

	r, err := New(context.Background(), Config{Kind: "fake-test"})
	if err != nil || r == nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := New(context.Background(), Config{Kind: "nope"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty kind")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("duplicate Register did not panic")
		}
	}()
	Register("fake-test", func(context.Context, Config) (Repository, error) { return nil, nil })
}

func TestWithClose(t *testing.T) {
	repo := &fakeRepo{}
	n := 0
	r := WithClose(repo, func() { n++ })
	if _, err := r.Replace(context.Background(), "zones", nil, [][]any{{1}}); err != nil {
		t.Fatal(err)
	}
	r.Close()
	if n != 1 || len(repo.calls) != 1 {
		t.Fatalf("cleanups=%d calls=%v", n, repo.calls)
	}
	WithClose(repo, nil).Close()
}
