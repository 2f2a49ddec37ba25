// Package cache implements the bounded handle table the HTTP surface uses
// to hold live graph.Processor instances between calls, ported from
// lib/cache.py's Cache. Eviction is FIFO by insertion order, not by last
// access: the original pops the oldest id off a deque regardless of how
// recently it was read, and this port preserves that rather than upgrading
// it to true LRU.
package cache

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Cache holds at most limit items, keyed by a uuid.UUID generated on Add.
// Safe for concurrent use.
type Cache[T any] struct {
	mu    sync.Mutex
	limit int
	items map[uuid.UUID]T
	order []uuid.UUID
}

// New builds a Cache that evicts its oldest entry once more than limit
// items have been added. limit must be positive.
func New[T any](limit int) (*Cache[T], error) {
	if limit <= 0 {
		return nil, fmt.Errorf("cache: invalid limit (%d)", limit)
	}
	return &Cache[T]{
		limit: limit,
		items: make(map[uuid.UUID]T),
	}, nil
}

// Add inserts item under a freshly generated id, evicting the
// oldest-inserted entry first if the cache is already at capacity.
func (c *Cache[T]) Add(item T) uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := uuid.New()
	c.items[id] = item
	c.order = append(c.order, id)

	for len(c.order) > c.limit {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}

	return id
}

// Get returns the item stored under id, or false if it's absent (never
// inserted, or already evicted).
func (c *Cache[T]) Get(id uuid.UUID) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.items[id]
	return v, ok
}

// Replace overwrites the item already stored under id, leaving its position
// in the eviction order untouched. It reports an error if id isn't already
// present, mirroring the original Cache.__setitem__'s refusal to blind-insert.
func (c *Cache[T]) Replace(id uuid.UUID, item T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[id]; !ok {
		return fmt.Errorf("cache: unknown id %s", id)
	}
	c.items[id] = item
	return nil
}
