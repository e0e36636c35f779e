// Package storage contains storage-agnostic contracts and utilities shared by
// the SQLite backends: the Repository interface, a kind-keyed factory
// registry, DDL bootstrap and a batched loader.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Repository is the minimal surface the binder and the CLI need from a
// backend. Table and column names are passed as generated by the DDL
// synthesizer; implementations do not quote or rewrite them.
type Repository interface {
	// Exec runs an arbitrary statement, typically CREATE TABLE.
	Exec(ctx context.Context, sql string) error
	// Insert writes rows (aligned to columns) into table and returns the
	// number of rows inserted.
	Insert(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
	// Select reads every row of table, projecting columns in order. SQL NULL
	// is reported as a nil element.
	Select(ctx context.Context, table string, columns []string) ([][]any, error)
	Close()
}

// Config selects and configures a backend.
type Config struct {
	// Kind names a registered backend, e.g. "sqlite" or "gorm-sqlite".
	Kind string
	// DSN is passed to the backend driver unchanged.
	DSN string
}

// Factory builds a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for kind. Backends call it
// from init.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
