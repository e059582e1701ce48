package mssql

import (
	"context"
	"errors"
	"fmt"
	"testing"

	mssql "github.com/microsoft/go-mssqldb"

	"ingest/internal/failure"
	"ingest/internal/storage"
)

// TestRegistrationUsesNewRepositoryHook verifies that the "mssql" backend
// registered in init() goes through the newRepository hook and that Close
// reaches the cleanup function.
func TestRegistrationUsesNewRepositoryHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var (
		gotCfg Config
		closed bool
	)
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return &Repository{}, func() { closed = true }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{Kind: "mssql", DSN: "sqlserver://sa:pw@localhost:1433?database=ny_taxi"})
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	if gotCfg.DSN != "sqlserver://sa:pw@localhost:1433?database=ny_taxi" {
		t.Errorf("hook DSN = %q", gotCfg.DSN)
	}
	repo.Close()
	if !closed {
		t.Fatal("Close did not invoke closeFn")
	}
}

func TestRegistrationPropagatesErrors(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	boom := failure.Write(errors.New("login failed"), "mssql: ping")
	newRepository = func(context.Context, Config) (*Repository, func(), error) { return nil, nil, boom }

	if _, err := storage.New(context.Background(), storage.Config{Kind: "mssql", DSN: "sqlserver://x"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"invalid column", mssql.Error{Number: 207, Message: "Invalid column name 'tip'."}, failure.ErrSchemaConflict},
		{"invalid object", fmt.Errorf("prepare: %w", mssql.Error{Number: 208, Message: "Invalid object name 'trips'."}), failure.ErrSchemaConflict},
		{"conversion", mssql.Error{Number: 8114}, failure.ErrSchemaConflict},
		{"bulk column", errors.New("column tip does not exist in destination table trips"), failure.ErrSchemaConflict},
		{"login", mssql.Error{Number: 18456, Message: "Login failed"}, failure.ErrWriteFailure},
		{"network", errors.New("read tcp: connection reset by peer"), failure.ErrWriteFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classify(tc.err, "bulk"); !errors.Is(got, tc.want) {
				t.Fatalf("classify() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNewRepositoryRejectsBadDSN(t *testing.T) {
	_, _, err := NewRepository(context.Background(), Config{DSN: "sqlserver://host:notaport"})
	if !errors.Is(err, failure.ErrWriteFailure) {
		t.Fatalf("err = %v, want write failure", err)
	}
}
