// Package csv reads delimited text one record at a time with bounded memory.
//
// The reader never skips rows: a record that fails to parse or has the wrong
// number of fields is returned as an error carrying its line number.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"ingest/internal/config"
)

// Options configures a Reader.
type Options struct {
	// HasHeader indicates whether the first row contains column headers.
	HasHeader bool

	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing spaces from each field value.
	TrimSpace bool

	// LazyQuotes relaxes quote handling in encoding/csv.
	LazyQuotes bool

	// ExpectedFields sets the column count when HasHeader is false. Zero
	// derives it from the first record.
	ExpectedFields int

	// HeaderMap maps raw header names to column names.
	HeaderMap map[string]string

	// FoldHeaders folds header names to lowercase ASCII identifiers.
	FoldHeaders bool

	// Scrub holds literal byte sequences rewritten before parsing, for
	// known-broken exports. Keys are replaced by values.
	Scrub map[string]string
}

// OptionsFrom reads parser.options:
//
//	has_header (bool, true), comma (string, ","), trim_space (bool, true),
//	lazy_quotes (bool), expected_fields (int), header_map (object),
//	normalize_headers (bool, true), scrub (object)
func OptionsFrom(o config.Options) Options {
	return Options{
		HasHeader:      o.Bool("has_header", true),
		Comma:          o.Rune("comma", ','),
		TrimSpace:      o.Bool("trim_space", true),
		LazyQuotes:     o.Bool("lazy_quotes", false),
		ExpectedFields: o.Int("expected_fields", 0),
		HeaderMap:      o.StringMap("header_map"),
		FoldHeaders:    o.Bool("normalize_headers", true),
		Scrub:          o.StringMap("scrub"),
	}
}

// ParseError reports a record that could not be read.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// ErrFieldCount is wrapped by ParseError when a record's width differs from
// the header's.
var ErrFieldCount = errors.New("wrong number of fields")

// Reader yields records as []any, with empty fields mapped to nil.
type Reader struct {
	cr          *csv.Reader
	header      []string
	pending     []string
	pendingLine int
	line        int
	trim        bool
}

// NewReader wraps r and consumes the header row when opt.HasHeader is set.
// An input with no records at all yields a Reader with no columns whose
// first Read returns io.EOF.
func NewReader(r io.Reader, opt Options) (*Reader, error) {
	r = newScrubber(r, opt.Scrub)

	cr := csv.NewReader(r)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.LazyQuotes = opt.LazyQuotes
	// Width is enforced by Read so the error names the line.
	cr.FieldsPerRecord = -1

	rd := &Reader{cr: cr, trim: opt.TrimSpace}

	if opt.HasHeader {
		h, err := cr.Read()
		if err == io.EOF {
			return rd, nil
		}
		rd.line = 1
		if err != nil {
			return nil, &ParseError{Line: 1, Err: fmt.Errorf("read header: %w", err)}
		}
		rd.header = NormalizeHeaders(h, opt.HeaderMap, opt.FoldHeaders)
		return rd, nil
	}

	n := opt.ExpectedFields
	if n <= 0 {
		first, err := cr.Read()
		if err == io.EOF {
			return rd, nil
		}
		if err != nil {
			return nil, &ParseError{Line: 1, Err: err}
		}
		rd.pending = first
		rd.pendingLine, _ = cr.FieldPos(0)
		n = len(first)
	}
	rd.header = make([]string, n)
	for i := range rd.header {
		rd.header[i] = fmt.Sprintf("col_%d", i)
	}
	return rd, nil
}

// Header returns the column names.
func (r *Reader) Header() []string { return r.header }

// Line returns the 1-based line of the last record returned.
func (r *Reader) Line() int { return r.line }

// Read returns the next record, io.EOF after the last one, or a *ParseError.
func (r *Reader) Read() ([]any, error) {
	var rec []string
	if r.pending != nil {
		rec, r.pending = r.pending, nil
		r.line = r.pendingLine
	} else {
		var err error
		rec, err = r.cr.Read()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			r.line++
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				r.line = pe.Line
			}
			return nil, &ParseError{Line: r.line, Err: err}
		}
		r.line, _ = r.cr.FieldPos(0)
	}

	if len(rec) != len(r.header) {
		return nil, &ParseError{
			Line: r.line,
			Err:  fmt.Errorf("%w: expected %d, got %d", ErrFieldCount, len(r.header), len(rec)),
		}
	}

	row := make([]any, len(rec))
	for i, v := range rec {
		if r.trim {
			v = strings.TrimSpace(v)
		}
		row[i] = emptyToNil(v)
	}
	return row, nil
}

// emptyToNil maps "" to nil so empty cells load as NULL.
func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
