package chunk

import (
	"context"
	"io"

	"ingest/internal/ddl"
	"ingest/internal/failure"
	"ingest/internal/parser/csv"
)

// csvReader streams at most size rows per batch from a delimited source.
type csvReader struct {
	r      *csv.Reader
	cols   []ddl.Column
	size   int
	index  int
	offset int64
	done   bool
	closer io.Closer
}

func newCSVReader(rc io.ReadCloser, opt csv.Options, size int) (*csvReader, error) {
	r, err := csv.NewReader(rc, opt)
	if err != nil {
		return nil, failure.Malformed(err, "csv header")
	}
	cols := make([]ddl.Column, len(r.Header()))
	for i, h := range r.Header() {
		cols[i] = ddl.Column{Name: h, Type: ddl.Text}
	}
	return &csvReader{r: r, cols: cols, size: size, closer: rc}, nil
}

func (c *csvReader) Next(ctx context.Context) (*Batch, error) {
	if c.done {
		return nil, io.EOF
	}
	rows := make([][]any, 0, min(c.size, 4096))
	for len(rows) < c.size {
		row, err := c.r.Read()
		if err == io.EOF {
			c.done = true
			break
		}
		if err != nil {
			return nil, failure.Malformed(err, "csv row %d", c.offset+int64(len(rows)))
		}
		// An exhausted stream reports EOF even under a canceled context.
		if len(rows)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, io.EOF
	}

	b := &Batch{Index: c.index, Offset: c.offset, Columns: cloneColumns(c.cols), Rows: rows}
	c.index++
	c.offset += int64(len(rows))
	return b, nil
}

func (c *csvReader) Close() error {
	if c.closer == nil {
		return nil
	}
	cl := c.closer
	c.closer = nil
	return cl.Close()
}
