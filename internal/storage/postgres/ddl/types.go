// Package ddl contains the Postgres dialect.
package ddl

import gddl "ingest/internal/ddl"

// Dialect renders Postgres DDL with ANSI double-quoted identifiers.
var Dialect = gddl.Dialect{
	Name:    "postgres ddl",
	Quote:   gddl.DoubleQuote,
	MapType: MapType,
}

// MapType maps a logical type onto a Postgres column type.
//
//	int       -> BIGINT
//	float     -> DOUBLE PRECISION
//	bool      -> BOOLEAN
//	timestamp -> TIMESTAMP
//	date      -> DATE
//	text      -> TEXT
//
// Timestamps are stored without time zone: source files carry local wall
// clock times and pgx writes time.Time values as-is.
func MapType(t gddl.Type) string {
	switch t {
	case gddl.Int:
		return "BIGINT"
	case gddl.Float:
		return "DOUBLE PRECISION"
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
