package chunk

import (
	"context"
	"errors"
	"io"
)

// partOpener opens one part of a dataset.
type partOpener func(ctx context.Context) (Reader, error)

// multiReader reads parts in order, opening each lazily and closing it
// before the next opens. Batch indexes and offsets continue across parts; a
// part boundary always ends the current batch.
type multiReader struct {
	parts  []partOpener
	part   int
	cur    Reader
	index  int
	offset int64
}

func newMultiReader(parts []partOpener) *multiReader {
	return &multiReader{parts: parts}
}

// openFirst opens part 0 eagerly so unreachable sources fail before any
// batch is produced.
func (m *multiReader) openFirst(ctx context.Context) error {
	if len(m.parts) == 0 {
		return nil
	}
	r, err := m.parts[0](ctx)
	if err != nil {
		return err
	}
	m.cur = r
	return nil
}

func (m *multiReader) Next(ctx context.Context) (*Batch, error) {
	for m.part < len(m.parts) {
		if m.cur == nil {
			r, err := m.parts[m.part](ctx)
			if err != nil {
				return nil, err
			}
			m.cur = r
		}

		b, err := m.cur.Next(ctx)
		if errors.Is(err, io.EOF) {
			cerr := m.cur.Close()
			m.cur = nil
			m.part++
			if cerr != nil {
				return nil, cerr
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		b.Index = m.index
		b.Offset = m.offset
		b.Part = m.part
		m.index++
		m.offset += int64(len(b.Rows))
		return b, nil
	}
	return nil, io.EOF
}

func (m *multiReader) Close() error {
	if m.cur == nil {
		return nil
	}
	err := m.cur.Close()
	m.cur = nil
	m.part = len(m.parts)
	return err
}
