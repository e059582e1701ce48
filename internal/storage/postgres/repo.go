// Package postgres implements storage.Repository on Postgres using pgx v5.
//
// Rows are loaded with COPY. Replace runs DROP, CREATE and COPY in one
// transaction, so a failed first batch leaves the previous table in place.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ingest/internal/ddl"
	"ingest/internal/failure"
	pgddl "ingest/internal/storage/postgres/ddl"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN string // connection string for pgxpool
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository connects a pool, pings it, and returns a Close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, failure.Write(err, "pgxpool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, failure.Write(err, "postgres: ping")
	}
	return &Repository{pool: pool}, func() { pool.Close() }, nil
}

// Replace drops table, recreates it from cols and copies rows in, atomically.
func (r *Repository) Replace(ctx context.Context, table string, cols []ddl.Column, rows [][]any) (int64, error) {
	create, err := pgddl.Dialect.BuildCreateTableSQL(pgddl.Dialect.TableDef(table, cols))
	if err != nil {
		return 0, failure.Schema(err, "postgres: build create")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, classify(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, pgddl.Dialect.BuildDropTableSQL(table)); err != nil {
		return 0, classify(err, "postgres: drop %s", table)
	}
	if _, err := tx.Exec(ctx, create); err != nil {
		return 0, classify(err, "postgres: create %s", table)
	}
	n, err := copyRows(ctx, tx, table, cols, rows)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, classify(err, "postgres: commit")
	}
	return n, nil
}

// Append copies rows into an existing table. COPY is a single statement, so
// the batch lands entirely or not at all.
func (r *Repository) Append(ctx context.Context, table string, cols []ddl.Column, rows [][]any) (int64, error) {
	return copyRows(ctx, r.pool, table, cols, rows)
}

// copier is satisfied by *pgxpool.Pool and pgx.Tx.
type copier interface {
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

func copyRows(ctx context.Context, c copier, table string, cols []ddl.Column, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := c.CopyFrom(ctx, splitFQN(table), ddl.Names(cols), pgx.CopyFromRows(rows))
	if err != nil {
		return 0, classify(err, "postgres: copy into %s", table)
	}
	return n, nil
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
// If no dot is present, returns {"table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			id = append(id, p)
		}
	}
	return id
}

// schemaStates are SQLSTATEs raised when the rows do not fit the table.
var schemaStates = map[string]bool{
	"42P01": true, // undefined_table
	"42703": true, // undefined_column
	"42804": true, // datatype_mismatch
	"22P02": true, // invalid_text_representation
	"22007": true, // invalid_datetime_format
	"22003": true, // numeric_value_out_of_range
	"22008": true, // datetime_field_overflow
}

// classify tags err as a schema conflict or a write failure. The Postgres
// detail, when present, is folded into the message since it usually names
// the offending column.
func classify(err error, format string, args ...any) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Detail != "" {
			err = fmt.Errorf("%w (%s)", err, pgErr.Detail)
		}
		if schemaStates[pgErr.SQLState()] {
			return failure.Schema(err, format, args...)
		}
		return failure.Write(err, format, args...)
	}
	// pgx fails client-side when a Go value cannot be encoded as the column's
	// type, before anything reaches the server.
	if strings.Contains(err.Error(), "unable to encode") {
		return failure.Schema(err, format, args...)
	}
	return failure.Write(err, format, args...)
}
