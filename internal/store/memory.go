package store

import (
	"context"
	"sync"

	"recsync/internal/recsync"
)

// MemoryStore is an in-memory SnapshotStore, useful for tests and dry runs.
// This implementation is safe for concurrent use.
type MemoryStore struct {
	name   string
	data   []byte
	exists bool
	puts   int
	mu     sync.RWMutex
}

// NewMemoryStore creates an empty store; Get reports ErrSnapshotNotFound
// until the first Put.
func NewMemoryStore(name string) *MemoryStore {
	return &MemoryStore{name: name}
}

// NewMemoryStoreWith creates a store already holding data.
func NewMemoryStoreWith(name string, data []byte) *MemoryStore {
	m := NewMemoryStore(name)
	m.data = append([]byte(nil), data...)
	m.exists = true
	return m
}

// Get returns a copy of the stored snapshot.
func (m *MemoryStore) Get(_ context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.exists {
		return nil, recsync.ErrSnapshotNotFound
	}
	return append([]byte(nil), m.data...), nil
}

// Put replaces the stored snapshot.
func (m *MemoryStore) Put(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = append([]byte(nil), data...)
	m.exists = true
	m.puts++
	return nil
}

// Puts returns how many times Put has succeeded.
func (m *MemoryStore) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}

func (m *MemoryStore) Location() string {
	return "memory://" + m.name
}

var _ recsync.SnapshotStore = (*MemoryStore)(nil)
