// Package ddl contains the MySQL dialect.
package ddl

import (
	"strings"

	gddl "ingest/internal/ddl"
)

// Dialect renders MySQL DDL with `backtick` identifiers.
var Dialect = gddl.Dialect{
	Name:    "mysql ddl",
	Quote:   QuoteIdent,
	MapType: MapType,
}

// QuoteIdent backtick-quotes a MySQL identifier, doubling embedded backticks.
func QuoteIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

// MapType maps a logical type onto a MySQL column type.
func MapType(t gddl.Type) string {
	switch t {
	case gddl.Int:
		return "BIGINT"
	case gddl.Float:
		return "DOUBLE"
	case gddl.Bool:
		return "BOOLEAN"
	case gddl.Timestamp:
		return "DATETIME(6)"
	case gddl.Date:
		return "DATE"
	default:
		return "LONGTEXT"
	}
}
