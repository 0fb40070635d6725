package cache

import (
	"context"
	"time"

	"github.com/KaramelBytes/boardsight/internal/analysis"
)

// Store caches cleaned tables by dataset key.
type Store interface {
	// Get returns the fresh table stored under key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) (*analysis.Table, bool, error)
	Set(ctx context.Context, key string, t *analysis.Table) error
	Invalidate(ctx context.Context) error
}

// WorkKey and DealsKey name the cache entries of the two boards.
func WorkKey(boardID string) string  { return "work_" + boardID }
func DealsKey(boardID string) string { return "deals_" + boardID }

// MemoryStore is a process-local Store.
type MemoryStore struct {
	c *TTLCache[*analysis.Table]
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{c: NewTTLCache[*analysis.Table](ttl)}
}

// Cache exposes the underlying TTL cache.
func (m *MemoryStore) Cache() *TTLCache[*analysis.Table] { return m.c }

func (m *MemoryStore) Get(_ context.Context, key string) (*analysis.Table, bool, error) {
	t, ok := m.c.Get(key)
	return t, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, t *analysis.Table) error {
	m.c.Set(key, t)
	return nil
}

func (m *MemoryStore) Invalidate(context.Context) error {
	m.c.Invalidate()
	return nil
}
