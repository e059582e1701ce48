// Package ddl defines the backend-agnostic column model carried by every batch
// and the small amount of shared machinery used to render DROP/CREATE TABLE
// statements for a SQL dialect.
package ddl

import (
	"fmt"
	"strings"
)

// Type is the logical type of a column. Backends map it to a SQL type.
type Type string

const (
	Text      Type = "text"
	Int       Type = "int"
	Float     Type = "float"
	Bool      Type = "bool"
	Timestamp Type = "timestamp"
	Date      Type = "date"
)

// ParseType maps a loosely spelled type name onto a logical Type.
//
//	"string"/"text"/"varchar"          -> text
//	"int"/"integer"/"bigint"           -> int
//	"float"/"double"/"real"/"numeric"  -> float
//	"bool"/"boolean"                   -> bool
//	"timestamp"/"timestamptz"/"datetime" -> timestamp
//	"date"                             -> date
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "string", "varchar":
		return Text, nil
	case "int", "integer", "bigint":
		return Int, nil
	case "float", "double", "real", "numeric", "decimal":
		return Float, nil
	case "bool", "boolean":
		return Bool, nil
	case "timestamp", "timestamptz", "datetime":
		return Timestamp, nil
	case "date":
		return Date, nil
	}
	return "", fmt.Errorf("ddl: unknown column type %q", s)
}

// Column is a named, typed column of a batch.
type Column struct {
	Name string
	Type Type
}

// Names returns the column names in order.
func Names(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

// SameNames reports whether a and b hold the same set of column names.
// Order is ignored; duplicates count once.
func SameNames(a, b []Column) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, c := range a {
		set[c.Name] = struct{}{}
	}
	for _, c := range b {
		if _, ok := set[c.Name]; !ok {
			return false
		}
	}
	return true
}

// ColumnDef describes a single column in a rendered table definition.
//
// Fields:
//   - Name: column name (unquoted; quoting happens at render time)
//   - SQLType: target SQL type (e.g., TEXT, BIGINT, TIMESTAMPTZ)
//   - Nullable: whether NULL is allowed
type ColumnDef struct {
	Name     string
	SQLType  string
	Nullable bool
}

// TableDef holds the fully-qualified table name (FQN) and an ordered list of
// columns. The FQN is expected in dotted form (e.g., "schema.table").
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}
