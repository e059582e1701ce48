// Package ddl contains the SQL Server dialect.
package ddl

import (
	"strings"

	gddl "ingest/internal/ddl"
)

// Dialect renders SQL Server DDL with [bracket] identifiers.
var Dialect = gddl.Dialect{
	Name:    "mssql ddl",
	Quote:   QuoteIdent,
	MapType: MapType,
}

// QuoteIdent brackets a SQL Server identifier, escaping ].
func QuoteIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

// MapType maps a logical type onto a SQL Server column type. Text is stored
// as NVARCHAR(MAX) since source widths are unknown up front.
func MapType(t gddl.Type) string {
	switch t {
	case gddl.Int:
		return "BIGINT"
	case gddl.Float:
		return "FLOAT"
	case gddl.Bool:
		return "BIT"
	case gddl.Timestamp:
		return "DATETIME2"
	case gddl.Date:
		return "DATE"
	default:
		return "NVARCHAR(MAX)"
	}
}
