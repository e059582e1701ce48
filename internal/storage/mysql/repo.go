// Package mysql implements storage.Repository on MySQL using
// go-sql-driver/mysql and multi-row INSERT statements.
//
// MySQL commits DDL implicitly, so Replace cannot be atomic: the table is
// dropped and recreated first and the rows are inserted in a transaction
// afterwards. A failed first batch therefore leaves an empty table.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"ingest/internal/ddl"
	"ingest/internal/failure"
	myddl "ingest/internal/storage/mysql/ddl"
)

// maxPlaceholders is the server limit on bound parameters per statement.
const maxPlaceholders = 65535

// rowsPerInsert caps the tuples in one INSERT.
const rowsPerInsert = 1000

// Config holds MySQL repository configuration.
type Config struct {
	// DSN in go-sql-driver form, e.g. "root:root@tcp(localhost:3306)/ny_taxi".
	DSN string
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db *sql.DB
}

// NewRepository parses the DSN, connects, pings and returns a Close function.
// parseTime is forced on so DATE and DATETIME columns scan as time.Time.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, failure.Write(err, "mysql dsn")
	}
	mc.ParseTime = true

	conn, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, nil, failure.Write(err, "mysql connector")
	}
	db := sql.OpenDB(conn)
	db.SetConnMaxLifetime(3 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, failure.Write(err, "mysql: ping")
	}
	return &Repository{db: db}, func() { _ = db.Close() }, nil
}

// Replace drops and recreates table, then inserts rows in one transaction.
func (r *Repository) Replace(ctx context.Context, table string, cols []ddl.Column, rows [][]any) (int64, error) {
	create, err := myddl.Dialect.BuildCreateTableSQL(myddl.Dialect.TableDef(table, cols))
	if err != nil {
		return 0, failure.Schema(err, "mysql: build create")
	}
	if _, err := r.db.ExecContext(ctx, myddl.Dialect.BuildDropTableSQL(table)); err != nil {
		return 0, classify(err, "mysql: drop %s", table)
	}
	if _, err := r.db.ExecContext(ctx, create); err != nil {
		return 0, classify(err, "mysql: create %s", table)
	}
	return r.Append(ctx, table, cols, rows)
}

// Append inserts rows in one transaction.
func (r *Repository) Append(ctx context.Context, table string, cols []ddl.Column, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify(err, "mysql: begin")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	names := ddl.Names(cols)
	per := insertSize(len(cols))
	var n int64
	for start := 0; start < len(rows); start += per {
		end := min(start+per, len(rows))
		args, err := flatten(rows[start:end], len(cols), start)
		if err != nil {
			return 0, err
		}
		res, err := tx.ExecContext(ctx, myddl.Dialect.BuildInsertSQL(table, names, end-start), args...)
		if err != nil {
			return 0, classify(err, "mysql: insert rows %d-%d into %s", start, end-1, table)
		}
		affected, _ := res.RowsAffected()
		n += affected
	}
	if err := tx.Commit(); err != nil {
		return 0, classify(err, "mysql: commit")
	}
	return n, nil
}

func insertSize(cols int) int {
	if cols == 0 {
		return rowsPerInsert
	}
	return max(1, min(rowsPerInsert, maxPlaceholders/cols))
}

func flatten(rows [][]any, width, offset int) ([]any, error) {
	args := make([]any, 0, len(rows)*width)
	for i, row := range rows {
		if len(row) != width {
			return nil, failure.Schema(nil, "mysql: row %d has %d values for %d columns", offset+i, len(row), width)
		}
		args = append(args, row...)
	}
	return args, nil
}

// schemaNumbers are MySQL error numbers raised when rows do not fit the table.
var schemaNumbers = map[uint16]bool{
	1054: true, // ER_BAD_FIELD_ERROR
	1136: true, // ER_WRONG_VALUE_COUNT_ON_ROW
	1146: true, // ER_NO_SUCH_TABLE
	1264: true, // ER_WARN_DATA_OUT_OF_RANGE
	1292: true, // ER_TRUNCATED_WRONG_VALUE
	1366: true, // ER_TRUNCATED_WRONG_VALUE_FOR_FIELD
}

func classify(err error, format string, args ...any) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && schemaNumbers[myErr.Number] {
		return failure.Schema(err, format, args...)
	}
	return failure.Write(err, format, args...)
}

