package chunk

import (
	"context"
	"io"

	"ingest/internal/ddl"
)

// sliceReader serves a fully materialized dataset in N-row slices:
// batch k covers rows [k*N, (k+1)*N).
type sliceReader struct {
	cols   []ddl.Column
	rows   [][]any
	size   int
	next   int
	closer io.Closer
}

// NewSliceReader returns a Reader over rows already in memory. closer, when
// non-nil, is closed by Close.
func NewSliceReader(cols []ddl.Column, rows [][]any, size int, closer io.Closer) Reader {
	if size <= 0 {
		size = len(rows)
	}
	return &sliceReader{cols: cols, rows: rows, size: size, closer: closer}
}

func (s *sliceReader) Next(ctx context.Context) (*Batch, error) {
	start := s.next * s.size
	if start >= len(s.rows) {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	end := min(start+s.size, len(s.rows))
	b := &Batch{
		Index:   s.next,
		Offset:  int64(start),
		Columns: cloneColumns(s.cols),
		Rows:    s.rows[start:end:end],
	}
	s.next++
	return b, nil
}

func (s *sliceReader) Close() error {
	s.rows = nil
	if s.closer == nil {
		return nil
	}
	c := s.closer
	s.closer = nil
	return c.Close()
}
