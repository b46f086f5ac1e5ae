// Package cache provides a small in-memory TTL cache with an injectable clock.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value      V
	insertedAt time.Time
}

// TTLCache maps keys to values that expire ttl after insertion
type TTLCache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	ttl     time.Duration
	now     func() time.Time
}

// New creates a cache. A nil clock means time.Now.
func New[V any](ttl time.Duration, clock func() time.Time) *TTLCache[V] {
	if clock == nil {
		clock = time.Now
	}
	return &TTLCache[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		now:     clock,
	}
}

// Get returns the live value for key and when it was stored. Expired entries
// are evicted on access.
func (c *TTLCache[V]) Get(key string) (V, time.Time, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, time.Time{}, false
	}
	if c.now().Sub(e.insertedAt) >= c.ttl {
		c.mu.Lock()
		if current, still := c.entries[key]; still && current.insertedAt.Equal(e.insertedAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, time.Time{}, false
	}

	return e.value, e.insertedAt, true
}

// Put stores value under key stamped with the current clock
func (c *TTLCache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, insertedAt: c.now()}
}

// Delete drops key
func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len reports the number of stored entries, expired or not
func (c *TTLCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
