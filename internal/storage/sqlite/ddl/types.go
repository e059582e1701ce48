// Package ddl holds the SQLite dialect: double-quoted identifiers and a type
// mapping that the modernc driver scans back into the same Go types.
package ddl

import gddl "ingest/internal/ddl"

// Dialect renders SQLite DDL.
var Dialect = gddl.Dialect{
	Name:    "sqlite ddl",
	Quote:   gddl.DoubleQuote,
	MapType: MapType,
}

// MapType maps a logical type onto a SQLite declared type.
//
// SQLite is dynamically typed; the declared names below matter because the
// driver uses them to decide whether to return bool or time.Time on scan.
func MapType(t gddl.Type) string {
	switch t {
	case gddl.Int:
		return "INTEGER"
	case gddl.Float:
		return "REAL"
	case gddl.Bool:
		return "BOOLEAN"
	case gddl.Timestamp:
		return "TIMESTAMP"
	case gddl.Date:
		return "DATE"
	default:
		return "TEXT"
	}
}
