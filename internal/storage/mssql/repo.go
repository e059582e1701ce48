// Package mssql implements storage.Repository on Microsoft SQL Server using
// the go-mssqldb bulk copy API.
//
// SQL Server DDL is transactional, so Replace drops, recreates and bulk loads
// the table inside one transaction.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"ingest/internal/ddl"
	"ingest/internal/failure"
	msddl "ingest/internal/storage/mssql/ddl"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN string
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, failure.Write(err, "mssql dsn")
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, failure.Write(err, "sql.Open")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, failure.Write(err, "mssql: ping")
	}
	return &Repository{db: db}, func() { _ = db.Close() }, nil
}

// Replace drops table, recreates it from cols and bulk loads rows, atomically.
func (r *Repository) Replace(ctx context.Context, table string, cols []ddl.Column, rows [][]any) (int64, error) {
	create, err := msddl.Dialect.BuildCreateTableSQL(msddl.Dialect.TableDef(table, cols))
	if err != nil {
		return 0, failure.Schema(err, "mssql: build create")
	}
	return r.inTx(ctx, table, cols, rows, msddl.Dialect.BuildDropTableSQL(table), create)
}

// Append bulk loads rows into an existing table in one transaction.
func (r *Repository) Append(ctx context.Context, table string, cols []ddl.Column, rows [][]any) (int64, error) {
	return r.inTx(ctx, table, cols, rows)
}

func (r *Repository) inTx(ctx context.Context, table string, cols []ddl.Column, rows [][]any, pre ...string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify(err, "mssql: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, stmt := range pre {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, classify(err, "mssql: ddl on %s", table)
		}
	}

	n, err := bulkCopy(ctx, tx, table, cols, rows)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, classify(err, "mssql: commit")
	}
	return n, nil
}

func bulkCopy(ctx context.Context, tx *sql.Tx, table string, cols []ddl.Column, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(msddl.Dialect.QuoteFQN(table), mssql.BulkOptions{}, ddl.Names(cols)...))
	if err != nil {
		return 0, classify(err, "mssql: prepare bulk into %s", table)
	}
	defer stmt.Close()

	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			return 0, classify(err, "mssql: bulk row %d", i)
		}
	}
	// An argument-less Exec flushes the bulk copy.
	res, err := stmt.ExecContext(ctx)
	if err != nil {
		return 0, classify(err, "mssql: bulk finalize")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify(err, "mssql: rows affected")
	}
	return n, nil
}

// schemaNumbers are SQL Server error numbers raised when rows do not fit the
// destination table.
var schemaNumbers = map[int32]bool{
	207:  true, // invalid column name
	208:  true, // invalid object name
	241:  true, // conversion failed for date/time
	245:  true, // conversion failed
	4816: true, // invalid column type from bcp client
	8114: true, // error converting data type
}

func classify(err error, format string, args ...any) error {
	var msErr mssql.Error
	if errors.As(err, &msErr) && schemaNumbers[msErr.Number] {
		return failure.Schema(err, format, args...)
	}
	// The bulk copy client resolves column names and types itself before
	// sending any rows.
	msg := err.Error()
	if strings.Contains(msg, "does not exist in destination table") ||
		strings.Contains(msg, "failed to convert") {
		return failure.Schema(err, format, args...)
	}
	return failure.Write(err, format, args...)
}
