// memory_store.go - In-memory key/value store for testing
package testutil

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/floorplan-editor/backend/internal/storage"
)

// Compile-time check
var _ storage.KVStore = (*MemoryStore)(nil)

// MemoryStore implements storage.KVStore in memory. Setting FailWrites makes
// every Set and Delete fail, for exercising degraded persistence paths.
type MemoryStore struct {
	mu         sync.RWMutex
	data       map[string][]byte
	writes     int
	FailWrites bool
}

// ErrWriteFailed is returned by a MemoryStore with FailWrites set.
var ErrWriteFailed = errors.New("memory store: write failed")

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites {
		return ErrWriteFailed
	}
	m.data[key] = append([]byte(nil), value...)
	m.writes++
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites {
		return ErrWriteFailed
	}
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// Has reports whether key is present.
func (m *MemoryStore) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok
}

// Keys returns every key, sorted.
func (m *MemoryStore) Keys() []string {
	keys, _ := m.List(context.Background(), "")
	return keys
}

// Writes returns the number of successful Set calls.
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// Clear removes all data.
func (m *MemoryStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte)
	m.writes = 0
}
