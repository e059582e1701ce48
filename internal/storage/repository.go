// Package storage defines the destination contract shared by all warehouse
// backends and the TableWriter that enforces the replace-then-append policy
// on top of it.
//
// Backends live in subpackages and register themselves from init(); import
// ingest/internal/storage/all to enable every built-in kind.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ingest/internal/ddl"
)

// Config is the minimal configuration needed to open a Repository.
//
// Edge cases:
//   - Kind must match a registered backend.
//   - DSN is passed through to SQL backends; validation is backend-specific.
//   - Project/Dataset/Location/CredentialsFile/Endpoint are only read by the
//     bigquery backend.
type Config struct {
	Kind string
	DSN  string

	Project         string
	Dataset         string
	Location        string
	CredentialsFile string
	Endpoint        string
}

// Sink is the write half of a Repository. Both methods insert all rows or
// none.
type Sink interface {
	// Replace drops table if it exists, creates it from cols and inserts
	// rows. Backends with transactional DDL do all three atomically.
	Replace(ctx context.Context, table string, cols []ddl.Column, rows [][]any) (int64, error)

	// Append inserts rows into an existing table.
	Append(ctx context.Context, table string, cols []ddl.Column, rows [][]any) (int64, error)
}

// Repository is an open destination handle. It is created once per run and
// used by a single goroutine.
type Repository interface {
	Sink

	// Close releases backend resources. Call once.
	Close()
}

// WithClose pairs a backend handle with the cleanup its constructor
// returned. A nil closeFn makes Close a no-op.
func WithClose(s Sink, closeFn func()) Repository {
	return closer{Sink: s, fn: closeFn}
}

type closer struct {
	Sink
	fn func()
}

func (c closer) Close() {
	if c.fn != nil {
		c.fn()
	}
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. It is meant to be called
// from a backend's init().
//
// Panics if kind is empty, f is nil, or kind is already registered.
func Register(kind string, f Factory) {
	if kind == "" {
		panic("storage: Register with empty kind")
	}
	if f == nil {
		panic("storage: Register with nil factory for " + kind)
	}
	mu.Lock()
	defer mu.Unlock()
	if _, dup := factories[kind]; dup {
		panic("storage: Register called twice for " + kind)
	}
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: kind must not be empty")
	}
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported kind %q (registered: %v)", cfg.Kind, Kinds())
	}
	return f(ctx, cfg)
}

// Kinds returns the registered backend kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
