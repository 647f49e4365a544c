// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

// Package cache provides a generic in-memory LRU cache with per-entry TTL.
//
// Two instances back the recommendation service: one in front of the album
// art resolvers (keyed by artist+track) and one in front of the engine
// itself (keyed by the full request). Both are bounded so a burst of unique
// keys cannot grow memory without limit.
package cache

import (
	"sync"
	"time"
)

// entry is a node in the intrusive doubly-linked recency list.
type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
	prev      *entry[V]
	next      *entry[V]
}

// LRU is a fixed-capacity cache with least-recently-used eviction and a
// uniform TTL. Expired entries are dropped lazily on access. Safe for
// concurrent use.
type LRU[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*entry[V]
	head     *entry[V] // most recently used
	tail     *entry[V] // least recently used
	hits     uint64
	misses   uint64
}

// NewLRU returns a cache holding at most capacity entries, each valid for
// ttl after insertion. A non-positive capacity defaults to 1; a
// non-positive ttl disables expiry.
func NewLRU[V any](capacity int, ttl time.Duration) *LRU[V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRU[V]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*entry[V], capacity),
	}
}

// Get returns the cached value for key and marks it most recently used.
// Expired entries are removed and reported as misses.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	if c.ttl > 0 && time.Now().After(e.expiresAt) {
		c.unlink(e)
		delete(c.items, key)
		c.misses++
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	c.hits++
	return e.value, true
}

// Set stores value under key, evicting the least recently used entry when
// the cache is full. Setting an existing key refreshes its value and TTL.
func (c *LRU[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		e.value = value
		e.expiresAt = time.Now().Add(c.ttl)
		c.moveToFront(e)
		return
	}

	if len(c.items) >= c.capacity && c.tail != nil {
		evict := c.tail
		c.unlink(evict)
		delete(c.items, evict.key)
	}

	e := &entry[V]{key: key, value: value, expiresAt: time.Now().Add(c.ttl)}
	c.items[key] = e
	c.pushFront(e)
}

// Remove deletes key from the cache if present.
func (c *LRU[V]) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		c.unlink(e)
		delete(c.items, key)
	}
}

// Len returns the number of entries currently held, including any that
// have expired but not yet been evicted.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns the cumulative hit and miss counts.
func (c *LRU[V]) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Sweep removes entries whose TTL has elapsed and reports how many were
// dropped. With expiry disabled it is a no-op.
func (c *LRU[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ttl <= 0 {
		return 0
	}
	now := time.Now()
	removed := 0
	for key, e := range c.items {
		if now.After(e.expiresAt) {
			c.unlink(e)
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Purge discards all entries. Counters are preserved.
func (c *LRU[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*entry[V], c.capacity)
	c.head = nil
	c.tail = nil
}

func (c *LRU[V]) pushFront(e *entry[V]) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *LRU[V]) unlink(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}

func (c *LRU[V]) moveToFront(e *entry[V]) {
	if c.head == e {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}
