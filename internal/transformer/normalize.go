// Package transformer applies column coercion rules to batches in place.
//
// A rule names a column and a target logical type. A rule written with the
// raw header text ("VendorID") also matches the folded column ("vendorid").
// Rules for columns the batch does not have are ignored, values that are already of the target
// type pass through untouched, and a value that cannot be coerced fails the
// whole batch with failure.ErrMalformedRow. Rows are never dropped or
// reordered.
package transformer

import (
	"fmt"
	"sort"
	"strings"

	"ingest/internal/chunk"
	"ingest/internal/config"
	"ingest/internal/ddl"
	"ingest/internal/failure"
	"ingest/internal/parser/csv"
)

// Rule coerces Column to Kind.
type Rule struct {
	Column string
	Kind   ddl.Type
}

// Normalizer holds the compiled rules for one dataset.
type Normalizer struct {
	Rules []Rule

	// Layouts are tried before the built-in timestamp/date layouts.
	Layouts []string

	// Truthy/Falsy replace the default boolean vocabulary when non-empty.
	Truthy []string
	Falsy  []string
}

// FromConfig builds a Normalizer from a dataset's "coerce" transforms. Rules
// are ordered by column name within each transform so runs are reproducible.
func FromConfig(ts []config.Transform) (*Normalizer, error) {
	n := &Normalizer{}
	for i, t := range ts {
		if t.Kind != "coerce" {
			return nil, fmt.Errorf("transform[%d]: unsupported kind %q", i, t.Kind)
		}
		types := t.Options.StringMap("types")
		cols := make([]string, 0, len(types))
		for c := range types {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		for _, c := range cols {
			kind, err := ddl.ParseType(types[c])
			if err != nil {
				return nil, fmt.Errorf("transform[%d] column %q: %w", i, c, err)
			}
			n.Rules = append(n.Rules, Rule{Column: c, Kind: kind})
		}
		if l := t.Options.String("layout", ""); l != "" {
			n.Layouts = append(n.Layouts, l)
		}
		n.Layouts = append(n.Layouts, t.Options.StringSlice("layouts")...)
		n.Truthy = append(n.Truthy, t.Options.StringSlice("truthy")...)
		n.Falsy = append(n.Falsy, t.Options.StringSlice("falsy")...)
	}
	return n, nil
}

// Apply coerces b in place. It returns an error wrapping
// failure.ErrMalformedRow naming the column, dataset row and value of the
// first value that cannot be coerced.
func (n *Normalizer) Apply(b *chunk.Batch) error {
	if n == nil || len(n.Rules) == 0 {
		return nil
	}
	bools := newBoolVocab(n.Truthy, n.Falsy)

	for _, rule := range n.Rules {
		idx := b.ColumnIndex(rule.Column)
		if idx < 0 {
			idx = b.ColumnIndex(csv.FoldName(rule.Column))
		}
		if idx < 0 {
			continue
		}
		coerce := n.coercer(rule.Kind, bools)
		for r, row := range b.Rows {
			v, err := coerce(row[idx])
			if err != nil {
				return failure.Malformed(nil, "column %q row %d: cannot coerce %s to %s: %v",
					rule.Column, b.Offset+int64(r), quoteValue(row[idx]), rule.Kind, err)
			}
			row[idx] = v
		}
		b.Columns[idx].Type = rule.Kind
	}
	return nil
}

func quoteValue(v any) string {
	s := fmt.Sprint(v)
	if len(s) > 64 {
		s = s[:64] + "..."
	}
	return fmt.Sprintf("%q", s)
}

// coercer returns the per-value conversion for kind. nil always stays nil.
func (n *Normalizer) coercer(kind ddl.Type, bools boolVocab) func(any) (any, error) {
	switch kind {
	case ddl.Timestamp:
		layouts := append(append([]string{}, n.Layouts...), timestampLayouts...)
		return func(v any) (any, error) { return toTime(v, layouts) }
	case ddl.Date:
		layouts := append(append([]string{}, n.Layouts...), dateLayouts...)
		return func(v any) (any, error) { return toTime(v, layouts) }
	case ddl.Int:
		return toInt
	case ddl.Float:
		return toFloat
	case ddl.Bool:
		return func(v any) (any, error) { return toBool(v, bools) }
	}
	return toText
}

// Columns lists the rule columns, for logging.
func (n *Normalizer) Columns() string {
	if n == nil {
		return ""
	}
	parts := make([]string, len(n.Rules))
	for i, r := range n.Rules {
		parts[i] = r.Column + ":" + string(r.Kind)
	}
	return strings.Join(parts, ",")
}
