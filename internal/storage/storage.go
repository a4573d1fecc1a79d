// Package storage provides the Backend contract a subsystem's
// `storage` facet wraps, plus the concrete backends the kernel ships:
// an in-process map and three database/sql drivers.
package storage

import (
	"context"
	"database/sql"
	"errors"
)

// ErrUnsupported is returned by Query/Exec on backends that only offer
// the key/value surface.
var ErrUnsupported = errors.New("storage: operation not supported by this backend")

// Backend is the facet contract a storage-consuming hook depends on
// (SPEC_FULL.md §4.13). Every method takes a context so a caller can bound
// a slow connection or query, even though the kernel itself only ever
// calls these from the owning subsystem's single cooperative thread.
type Backend interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Query(ctx context.Context, sqlText string, args ...any) (*sql.Rows, error)
	Exec(ctx context.Context, sqlText string, args ...any) (sql.Result, error)
	Close() error
}

// Options configures a backend: the DSN SQL-backed backends connect
// with, ignored by memory.
type Options struct {
	DSN string
}

// Open constructs the backend named by kind (memory, sqlite, mysql,
// postgres), per ctx.config.storage.backend (spec.md §6).
func Open(kind string, opts Options) (Backend, error) {
	switch kind {
	case "", "memory":
		return newMemoryBackend(), nil
	case "sqlite":
		return newSQLBackend("sqlite3", opts.DSN)
	case "mysql":
		return newSQLBackend("mysql", opts.DSN)
	case "postgres":
		return newSQLBackend("postgres", opts.DSN)
	default:
		return nil, errors.New("storage: unknown backend kind " + kind)
	}
}
