package storage

import (
	"context"
	"fmt"
	"strings"

	"ingest/internal/chunk"
	"ingest/internal/ddl"
	"ingest/internal/failure"
)

// TableState is the lifecycle of a destination table within one run.
type TableState int

const (
	// Absent means the table has not been written in this run. It may still
	// exist in the warehouse from an earlier run.
	Absent TableState = iota
	// Initialized means the first batch replaced the table.
	Initialized
	// Appending means at least one batch was appended after initialization.
	Appending
)

func (s TableState) String() string {
	switch s {
	case Initialized:
		return "INITIALIZED"
	case Appending:
		return "APPENDING"
	}
	return "ABSENT"
}

type tableInfo struct {
	state   TableState
	columns []ddl.Column
}

// TableWriter applies batches to tables under the replace-then-append
// policy. It tracks per-table state for a single run and is not safe for
// concurrent use.
type TableWriter struct {
	repo   Repository
	tables map[string]*tableInfo
}

// NewTableWriter returns a writer over repo.
func NewTableWriter(repo Repository) *TableWriter {
	return &TableWriter{repo: repo, tables: map[string]*tableInfo{}}
}

// State returns the run-local lifecycle state of table.
func (w *TableWriter) State(table string) TableState {
	if t, ok := w.tables[key(table)]; ok {
		return t.state
	}
	return Absent
}

// Write applies b to table. With first set the table is dropped, recreated
// from b's columns and filled with b's rows; otherwise b is appended.
//
// Appending to a table this run has not initialized, or with columns whose
// names or types differ from the ones it was initialized with, is a schema
// conflict and does not touch the warehouse. Backend errors are returned as
// classified by the backend (schema conflict or write failure).
func (w *TableWriter) Write(ctx context.Context, table string, b *chunk.Batch, first bool) (int64, error) {
	k := key(table)

	if first {
		n, err := w.repo.Replace(ctx, table, b.Columns, b.Rows)
		if err != nil {
			return 0, failure.Write(err, "replace %s", table)
		}
		w.tables[k] = &tableInfo{state: Initialized, columns: append([]ddl.Column(nil), b.Columns...)}
		return n, nil
	}

	t, ok := w.tables[k]
	if !ok {
		return 0, failure.Schema(nil, "append %s: table was not initialized in this run", table)
	}
	if diff := schemaDiff(t.columns, b.Columns); diff != "" {
		return 0, failure.Schema(nil, "append %s: %s", table, diff)
	}

	n, err := w.repo.Append(ctx, table, b.Columns, b.Rows)
	if err != nil {
		return 0, failure.Write(err, "append %s", table)
	}
	t.state = Appending
	return n, nil
}

func key(table string) string { return strings.ToLower(strings.TrimSpace(table)) }

// schemaDiff describes how got differs from want, or returns "".
func schemaDiff(want, got []ddl.Column) string {
	if !ddl.SameNames(want, got) {
		return fmt.Sprintf("batch columns [%s] differ from table columns [%s]",
			strings.Join(ddl.Names(got), ","), strings.Join(ddl.Names(want), ","))
	}
	types := make(map[string]ddl.Type, len(want))
	for _, c := range want {
		types[c.Name] = c.Type
	}
	for _, c := range got {
		if t := types[c.Name]; t != c.Type {
			return fmt.Sprintf("column %s is %s in the batch but %s in the table", c.Name, c.Type, t)
		}
	}
	return ""
}
