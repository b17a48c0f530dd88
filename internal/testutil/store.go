package testutil

import (
	"context"
	"sync"

	"recsync/internal/recsync"
	"recsync/internal/store"
)

// NewTestStore creates an empty in-memory snapshot store.
func NewTestStore() *store.MemoryStore {
	return store.NewMemoryStore("test-snapshot")
}

// StoreFactory returns a StoreFactory that always hands out s.
func StoreFactory(s recsync.SnapshotStore) recsync.StoreFactory {
	return func(context.Context, *recsync.Secret) (recsync.SnapshotStore, error) {
		return s, nil
	}
}

// FaultyStore wraps a store and fails Get or Put with the configured errors.
type FaultyStore struct {
	recsync.SnapshotStore
	GetErr error
	PutErr error
}

func (s *FaultyStore) Get(ctx context.Context) ([]byte, error) {
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	return s.SnapshotStore.Get(ctx)
}

func (s *FaultyStore) Put(ctx context.Context, data []byte) error {
	if s.PutErr != nil {
		return s.PutErr
	}
	return s.SnapshotStore.Put(ctx, data)
}

// GatedStore holds every Get until n callers have read the snapshot, so n
// runs are forced to download the same version before any of them uploads.
type GatedStore struct {
	recsync.SnapshotStore
	wg sync.WaitGroup
	mu sync.Mutex
}

// NewGatedStore wraps s with a barrier of n readers.
func NewGatedStore(s recsync.SnapshotStore, n int) *GatedStore {
	g := &GatedStore{SnapshotStore: s}
	g.wg.Add(n)
	return g
}

func (g *GatedStore) Get(ctx context.Context) ([]byte, error) {
	data, err := g.SnapshotStore.Get(ctx)
	g.wg.Done()
	g.wg.Wait()
	return data, err
}

// Put serializes writers so the last writer is well defined.
func (g *GatedStore) Put(ctx context.Context, data []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.SnapshotStore.Put(ctx, data)
}
