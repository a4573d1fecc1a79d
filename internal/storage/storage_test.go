package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMemoryBackendDefaultsOnEmptyKind(t *testing.T) {
	b, err := Open("", Options{})
	require.NoError(t, err)
	defer b.Close()

	_, ok := b.(*memoryBackend)
	assert.True(t, ok)
}

func TestOpenUnknownKindFails(t *testing.T) {
	_, err := Open("nope", Options{})
	assert.Error(t, err)
}

func TestMemoryBackendPutGetDelete(t *testing.T) {
	b, err := Open("memory", Options{})
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()

	_, found, err := b.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, b.Put(ctx, "k", []byte("v1")))
	value, found, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v1", string(value))

	require.NoError(t, b.Delete(ctx, "k"))
	_, found, err = b.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryBackendGetReturnsACopy(t *testing.T) {
	b, err := Open("memory", Options{})
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	original := []byte("original")
	require.NoError(t, b.Put(ctx, "k", original))
	original[0] = 'X'

	value, _, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "original", string(value))
}

func TestMemoryBackendQueryAndExecUnsupported(t *testing.T) {
	b, err := Open("memory", Options{})
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	_, err = b.Query(ctx, "select 1")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = b.Exec(ctx, "delete from t")
	assert.ErrorIs(t, err, ErrUnsupported)
}
