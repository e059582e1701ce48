// Package chunk turns a dataset into an ordered sequence of bounded batches.
//
// Two strategies sit behind the Reader interface: delimited text is streamed
// N rows at a time, while Parquet is materialized once and sliced. Callers
// cannot tell them apart.
package chunk

import (
	"context"

	"ingest/internal/ddl"
)

// Batch is a bounded, ordered slice of a dataset's rows.
type Batch struct {
	// Index is the 0-based position of the batch in the dataset.
	Index int

	// Offset is the dataset row number of Rows[0].
	Offset int64

	// Part is the 0-based source part the rows came from.
	Part int

	Columns []ddl.Column
	Rows    [][]any
}

// Len returns the number of rows.
func (b *Batch) Len() int { return len(b.Rows) }

// ColumnIndex returns the position of the named column or -1.
func (b *Batch) ColumnIndex(name string) int {
	for i, c := range b.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Reader yields batches in dataset order. Next returns io.EOF after the last
// batch. Close releases files and staged downloads and may be called at any
// point, including after a failed Next.
type Reader interface {
	Next(ctx context.Context) (*Batch, error)
	Close() error
}

func cloneColumns(cols []ddl.Column) []ddl.Column {
	out := make([]ddl.Column, len(cols))
	copy(out, cols)
	return out
}
