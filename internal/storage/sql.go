package storage

import (
	"context"
	"database/sql"
	"log/slog"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// sqlBackend adapts a database/sql connection to Backend, backing the
// key/value surface with a `kv` table created when the backend opens and passing
// Query/Exec straight through.
type sqlBackend struct {
	driver string
	db     *sql.DB
}

func newSQLBackend(driver, dsn string) (*sqlBackend, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		slog.Error("failed to open storage connection", slog.String("driver", driver), slog.Any("error", err))
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("failed to ping storage connection", slog.String("driver", driver), slog.Any("error", err))
		_ = db.Close()
		return nil, err
	}

	b := &sqlBackend{driver: driver, db: db}
	if _, err := db.Exec(b.createTableStatement()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

// createTableStatement returns the kv-table DDL for this driver's column
// names and types.
func (b *sqlBackend) createTableStatement() string {
	switch b.driver {
	case "postgres":
		return `CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value BYTEA NOT NULL)`
	default:
		return `CREATE TABLE IF NOT EXISTS kv (key_col VARCHAR(512) PRIMARY KEY, value LONGBLOB NOT NULL)`
	}
}

func (b *sqlBackend) placeholder(n int) string {
	if b.driver == "postgres" {
		switch n {
		case 1:
			return "$1"
		case 2:
			return "$2"
		default:
			return "$3"
		}
	}
	return "?"
}

func (b *sqlBackend) keyColumn() string {
	if b.driver == "postgres" {
		return "key"
	}
	return "key_col"
}

func (b *sqlBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	q := "SELECT value FROM kv WHERE " + b.keyColumn() + " = " + b.placeholder(1)
	row := b.db.QueryRowContext(ctx, q, key)
	var value []byte
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

func (b *sqlBackend) Put(ctx context.Context, key string, value []byte) error {
	var q string
	switch b.driver {
	case "postgres":
		q = "INSERT INTO kv (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value"
	case "mysql":
		q = "INSERT INTO kv (key_col, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)"
	default:
		q = "INSERT OR REPLACE INTO kv (key_col, value) VALUES (?, ?)"
	}
	_, err := b.db.ExecContext(ctx, q, key, value)
	return err
}

func (b *sqlBackend) Delete(ctx context.Context, key string) error {
	q := "DELETE FROM kv WHERE " + b.keyColumn() + " = " + b.placeholder(1)
	_, err := b.db.ExecContext(ctx, q, key)
	return err
}

func (b *sqlBackend) Query(ctx context.Context, sqlText string, args ...any) (*sql.Rows, error) {
	return b.db.QueryContext(ctx, sqlText, args...)
}

func (b *sqlBackend) Exec(ctx context.Context, sqlText string, args ...any) (sql.Result, error) {
	return b.db.ExecContext(ctx, sqlText, args...)
}

func (b *sqlBackend) Close() error { return b.db.Close() }
