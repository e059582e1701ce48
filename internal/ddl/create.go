package ddl

import (
	"fmt"
	"strings"
)

// Dialect captures what differs between SQL backends when rendering DDL:
// identifier quoting, the logical->SQL type mapping and the DROP statement.
type Dialect struct {
	// Name prefixes error messages (e.g. "postgres ddl").
	Name string

	// Quote quotes a single identifier segment.
	Quote func(ident string) string

	// MapType maps a logical type onto a SQL column type.
	MapType func(t Type) string

	// DropFormat is a fmt format with one %s for the quoted FQN. Defaults to
	// "DROP TABLE IF EXISTS %s".
	DropFormat string
}

// QuoteFQN quotes each dotted segment of fqn. Empty segments are dropped.
func (d Dialect) QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.Quote(p))
	}
	return strings.Join(out, ".")
}

// TableDef builds a nullable table definition for the given batch columns.
func (d Dialect) TableDef(fqn string, cols []Column) TableDef {
	defs := make([]ColumnDef, len(cols))
	for i, c := range cols {
		defs[i] = ColumnDef{Name: c.Name, SQLType: d.MapType(c.Type), Nullable: true}
	}
	return TableDef{FQN: fqn, Columns: defs}
}

// BuildCreateTableSQL renders:
//
//	CREATE TABLE <fqn> (
//	  <col1> TYPE [NOT NULL],
//	  <col2> TYPE
//	)
//
// The table name and every column must be non-empty.
func (d Dialect) BuildCreateTableSQL(t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s: table FQN must not be empty", d.Name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s: at least one column is required", d.Name)
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s: column with empty name in table %s", d.Name, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("%s: column %s missing SQLType", d.Name, name)
		}

		var sb strings.Builder
		sb.WriteString(d.Quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", d.QuoteFQN(fqn), strings.Join(cols, ",\n  ")), nil
}

// BuildDropTableSQL renders the dialect's DROP TABLE IF EXISTS statement.
func (d Dialect) BuildDropTableSQL(fqn string) string {
	format := d.DropFormat
	if format == "" {
		format = "DROP TABLE IF EXISTS %s"
	}
	return fmt.Sprintf(format, d.QuoteFQN(fqn))
}

// DoubleQuote is the ANSI identifier quoting used by Postgres and SQLite.
func DoubleQuote(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// BuildInsertSQL renders a multi-row INSERT with "?" placeholders:
//
//	INSERT INTO <fqn> (<c1>, <c2>) VALUES (?, ?), (?, ?)
func (d Dialect) BuildInsertSQL(fqn string, cols []string, rows int) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.Quote(c)
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", d.QuoteFQN(fqn), strings.Join(quoted, ", "))
	for i := 0; i < rows; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(tuple)
	}
	return sb.String()
}
