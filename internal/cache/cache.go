// Package cache provides a small TTL cache used to memoize per-user report
// aggregations between dashboard renders.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	data      T
	expiresAt time.Time
}

// TTLCache is a size-bounded cache with per-entry expiry. Writes past the
// size bound evict expired entries first, then the entry closest to expiry.
type TTLCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]entry[T]
}

func NewTTLCache[T any](maxSize int, ttl time.Duration) *TTLCache[T] {
	return &TTLCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]entry[T]),
	}
}

// Get retrieves a live value. Expired entries are removed on access.
func (c *TTLCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.items, key)
		return zero, false
	}
	return e.data, true
}

// Set stores a value with the cache's TTL.
func (c *TTLCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[key]; !ok && len(c.items) >= c.maxSize {
		c.evictLocked()
	}
	c.items[key] = entry[T]{data: data, expiresAt: time.Now().Add(c.ttl)}
}

// Delete removes a key.
func (c *TTLCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Size returns the number of entries, including any not yet expired-swept.
func (c *TTLCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// evictLocked drops all expired entries; if nothing expired, it drops the
// entry closest to expiry. Caller holds the lock.
func (c *TTLCache[T]) evictLocked() {
	now := time.Now()
	removed := false
	for k, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, k)
			removed = true
		}
	}
	if removed {
		return
	}
	var oldestKey string
	var oldest time.Time
	for k, e := range c.items {
		if oldestKey == "" || e.expiresAt.Before(oldest) {
			oldestKey = k
			oldest = e.expiresAt
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
