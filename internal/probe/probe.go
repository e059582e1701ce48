// Package probe samples the head of a dataset and suggests how to load it:
// a column type per header, the coerce transform that produces those types,
// and the CREATE TABLE each SQL backend would issue for the first batch.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"ingest/internal/chunk"
	"ingest/internal/config"
	"ingest/internal/ddl"
	"ingest/internal/failure"
	msddl "ingest/internal/storage/mssql/ddl"
	myddl "ingest/internal/storage/mysql/ddl"
	pgddl "ingest/internal/storage/postgres/ddl"
	sqliteddl "ingest/internal/storage/sqlite/ddl"
)

// DefaultRows is the sample size when none is given.
const DefaultRows = 1000

// Column is the inference for one column.
type Column struct {
	Name string
	Type ddl.Type

	// Layout is the best-matching time layout for date/timestamp columns.
	Layout string

	// Nulls counts empty samples.
	Nulls int
}

// Result describes a sampled dataset.
type Result struct {
	Dataset string
	Table   string
	Rows    int
	Columns []Column
}

// Test seam.
var openReaderFn = chunk.Open

// Sample reads up to rows rows of ds and infers column types. Values the
// reader already typed (Parquet) keep their type.
func Sample(ctx context.Context, ds config.Dataset, rows int, log *slog.Logger) (Result, error) {
	if rows <= 0 {
		rows = DefaultRows
	}
	r, err := openReaderFn(ctx, ds, rows, chunk.Options{Logger: log})
	if err != nil {
		return Result{}, err
	}
	defer r.Close()

	res := Result{Dataset: ds.Name, Table: ds.Table}
	b, err := r.Next(ctx)
	if errors.Is(err, io.EOF) {
		return res, failure.Malformed(nil, "dataset %s: no rows to sample", ds.Name)
	}
	if err != nil {
		return res, err
	}
	res.Rows = b.Len()
	res.Columns = Infer(b)
	return res, nil
}

// Infer returns one Column per batch column.
func Infer(b *chunk.Batch) []Column {
	out := make([]Column, len(b.Columns))
	for i, c := range b.Columns {
		col := Column{Name: c.Name, Type: c.Type}
		var samples []string
		for _, row := range b.Rows {
			switch v := row[i].(type) {
			case nil:
				col.Nulls++
			case string:
				if s := strings.TrimSpace(v); s != "" {
					samples = append(samples, s)
				} else {
					col.Nulls++
				}
			}
		}
		if c.Type == ddl.Text {
			col.Type = inferKind(samples)
		}
		if col.Type == ddl.Timestamp || col.Type == ddl.Date {
			col.Layout = bestLayout(samples, col.Type == ddl.Timestamp)
		}
		out[i] = col
	}
	return out
}

// BatchColumns returns the columns the first batch would have after the
// suggested transform.
func (r Result) BatchColumns() []ddl.Column {
	cols := make([]ddl.Column, len(r.Columns))
	for i, c := range r.Columns {
		cols[i] = ddl.Column{Name: c.Name, Type: c.Type}
	}
	return cols
}

// Transform returns the coerce transform for every non-text column, with
// any time layouts the transform does not already know. ok is false when
// every column is text.
func (r Result) Transform() (t config.Transform, ok bool) {
	types := map[string]any{}
	var layouts []string
	for _, c := range r.Columns {
		if c.Type == ddl.Text {
			continue
		}
		types[c.Name] = string(c.Type)
		if c.Layout != "" && !slices.Contains(knownLayouts, c.Layout) && !slices.Contains(layouts, c.Layout) {
			layouts = append(layouts, c.Layout)
		}
	}
	if len(types) == 0 {
		return config.Transform{}, false
	}
	opts := config.Options{"types": types}
	if len(layouts) > 0 {
		opts["layouts"] = layouts
	}
	return config.Transform{Kind: "coerce", Options: opts}, true
}

var dialects = map[string]ddl.Dialect{
	"postgres": pgddl.Dialect,
	"sqlite":   sqliteddl.Dialect,
	"mssql":    msddl.Dialect,
	"mysql":    myddl.Dialect,
}

// CreateTable renders the CREATE TABLE the kind backend issues for the
// first batch of r.
func (r Result) CreateTable(kind string) (string, error) {
	d, ok := dialects[kind]
	if !ok {
		return "", fmt.Errorf("probe: no SQL dialect for storage kind %q", kind)
	}
	table := r.Table
	if table == "" {
		table = r.Dataset
	}
	return d.BuildCreateTableSQL(d.TableDef(table, r.BatchColumns()))
}
