// Package sqlite implements storage.Repository on SQLite through the pure-Go
// modernc driver.
//
// SQLite has transactional DDL, so Replace drops, recreates and fills the
// table in one transaction and a failed first batch leaves the previous
// table untouched. Rows go through a prepared single-row INSERT; inside a
// transaction that is as fast as multi-row statements for this driver and
// avoids the bound-parameter limit.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ingest/internal/ddl"
	"ingest/internal/failure"
	sqliteddl "ingest/internal/storage/sqlite/ddl"

	_ "modernc.org/sqlite"
)

// Config holds the SQLite connection settings.
type Config struct {
	// DSN is a file path or URI understood by the driver, e.g.
	//   "ny_taxi.db"
	//   "file:ny_taxi.db?_pragma=busy_timeout(5000)"
	//   ":memory:"
	DSN string
}

// Repository is a SQLite-backed storage.Repository.
type Repository struct {
	db *sql.DB
}

// NewRepository opens and pings the database and returns a Repository plus
// a cleanup function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, failure.Write(err, "sqlite: open")
	}
	// One connection: SQLite serializes writers anyway, and ":memory:" would
	// otherwise give every pooled connection its own empty database.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, failure.Write(err, "sqlite: ping")
	}

	return &Repository{db: db}, func() { db.Close() }, nil
}

// Replace drops table, recreates it from cols and inserts rows, atomically.
func (r *Repository) Replace(ctx context.Context, table string, cols []ddl.Column, rows [][]any) (int64, error) {
	create, err := sqliteddl.Dialect.BuildCreateTableSQL(sqliteddl.Dialect.TableDef(table, cols))
	if err != nil {
		return 0, failure.Schema(err, "sqlite: build create")
	}
	return r.inTx(ctx, table, cols, rows, sqliteddl.Dialect.BuildDropTableSQL(table), create)
}

// Append inserts rows into an existing table in one transaction.
func (r *Repository) Append(ctx context.Context, table string, cols []ddl.Column, rows [][]any) (int64, error) {
	return r.inTx(ctx, table, cols, rows)
}

func (r *Repository) inTx(ctx context.Context, table string, cols []ddl.Column, rows [][]any, pre ...string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, stmt := range pre {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, classify(err, "sqlite: %s", firstWord(stmt))
		}
	}

	n, err := insertRows(ctx, tx, table, cols, rows)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, classify(err, "sqlite: commit")
	}
	return n, nil
}

func insertRows(ctx context.Context, tx *sql.Tx, table string, cols []ddl.Column, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	stmt, err := tx.PrepareContext(ctx, sqliteddl.Dialect.BuildInsertSQL(table, ddl.Names(cols), 1))
	if err != nil {
		return 0, classify(err, "sqlite: prepare insert into %s", table)
	}
	defer stmt.Close()

	var n int64
	for i, row := range rows {
		if len(row) != len(cols) {
			return 0, failure.Schema(nil, "sqlite: row %d has %d values for %d columns", i, len(row), len(cols))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, classify(err, "sqlite: insert row %d", i)
		}
		n++
	}
	return n, nil
}

// schemaMarkers are fragments of SQLite messages raised when a statement does
// not fit the table's shape.
var schemaMarkers = []string{
	"no such table",
	"no such column",
	"has no column named",
	"datatype mismatch",
	"values for",
}

func classify(err error, format string, args ...any) error {
	msg := strings.ToLower(err.Error())
	for _, m := range schemaMarkers {
		if strings.Contains(msg, m) {
			return failure.Schema(err, format, args...)
		}
	}
	return failure.Write(err, format, args...)
}

func firstWord(stmt string) string {
	if i := strings.IndexByte(stmt, ' '); i > 0 {
		return strings.ToLower(stmt[:i])
	}
	return stmt
}
