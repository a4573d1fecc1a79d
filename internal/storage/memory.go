package storage

import (
	"context"
	"database/sql"
	"sync"
)

// memoryBackend is the default storage backend: a mutex-guarded map, no
// persistence, no SQL surface.
type memoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{data: make(map[string][]byte)}
}

func (m *memoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *memoryBackend) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored
	return nil
}

func (m *memoryBackend) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryBackend) Query(ctx context.Context, sqlText string, args ...any) (*sql.Rows, error) {
	return nil, ErrUnsupported
}

func (m *memoryBackend) Exec(ctx context.Context, sqlText string, args ...any) (sql.Result, error) {
	return nil, ErrUnsupported
}

func (m *memoryBackend) Close() error { return nil }
