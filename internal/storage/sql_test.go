package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLBackendDialectHelpers(t *testing.T) {
	pg := &sqlBackend{driver: "postgres"}
	assert.Equal(t, "key", pg.keyColumn())
	assert.Equal(t, "$1", pg.placeholder(1))
	assert.Equal(t, "$2", pg.placeholder(2))
	assert.Contains(t, pg.createTableStatement(), "BYTEA")

	mysql := &sqlBackend{driver: "mysql"}
	assert.Equal(t, "key_col", mysql.keyColumn())
	assert.Equal(t, "?", mysql.placeholder(1))
	assert.Contains(t, mysql.createTableStatement(), "LONGBLOB")

	sqlite := &sqlBackend{driver: "sqlite3"}
	assert.Equal(t, "key_col", sqlite.keyColumn())
	assert.Equal(t, "?", sqlite.placeholder(1))
}

func TestOpenSQLiteBackendRoundTrip(t *testing.T) {
	b, err := Open("sqlite", Options{DSN: ":memory:"})
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	require.NoError(t, b.Put(ctx, "greeting", []byte("hello")))

	value, found, err := b.Get(ctx, "greeting")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "hello", string(value))

	require.NoError(t, b.Put(ctx, "greeting", []byte("updated")))
	value, found, err = b.Get(ctx, "greeting")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "updated", string(value))

	require.NoError(t, b.Delete(ctx, "greeting"))
	_, found, err = b.Get(ctx, "greeting")
	require.NoError(t, err)
	assert.False(t, found)
}
