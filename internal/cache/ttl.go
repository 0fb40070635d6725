// Package cache memoizes cleaned board tables for a bounded time.
package cache

import (
	"sync"
	"time"
)

// DefaultTTL is how long a cached table stays fresh.
const DefaultTTL = 300 * time.Second

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// TTLCache is a keyed store whose entries expire ttl after they were set.
// Expired entries are removed lazily by the lookup that finds them.
type TTLCache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry[V]
}

// NewTTLCache returns an empty cache. A non-positive ttl selects DefaultTTL.
func NewTTLCache[V any](ttl time.Duration) *TTLCache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TTLCache[V]{ttl: ttl, now: time.Now, entries: map[string]entry[V]{}}
}

// SetClock replaces the time source.
func (c *TTLCache[V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// TTL returns the configured lifetime.
func (c *TTLCache[V]) TTL() time.Duration { return c.ttl }

// Get returns the value stored under key while it is fresh.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, replacing any prior entry.
func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, storedAt: c.now()}
}

// Invalidate drops every entry.
func (c *TTLCache[V]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len returns the number of entries held, expired or not.
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
