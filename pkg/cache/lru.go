// Package cache provides a generic thread-safe LRU cache with count and
// size limits, and LZ4 helpers for storing compressed payloads in it.
package cache

import (
	"sync"
	"sync/atomic"
)

type entry[K comparable, V any] struct {
	key  K
	val  V
	size int64
	prev *entry[K, V]
	next *entry[K, V]
}

// LRU is a thread-safe least-recently-used cache.
type LRU[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[K, V]
	head    *entry[K, V] // most recently used
	tail    *entry[K, V] // least recently used

	maxEntries int
	maxBytes   int64
	curBytes   int64
	sizeFunc   func(V) int64

	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures an LRU.
type Option[K comparable, V any] func(*LRU[K, V])

// WithMaxEntries bounds the number of entries.
func WithMaxEntries[K comparable, V any](n int) Option[K, V] {
	return func(c *LRU[K, V]) {
		c.maxEntries = n
	}
}

// WithMaxBytes bounds the summed size of entries as reported by sizeFunc.
func WithMaxBytes[K comparable, V any](n int64, sizeFunc func(V) int64) Option[K, V] {
	return func(c *LRU[K, V]) {
		c.maxBytes = n
		c.sizeFunc = sizeFunc
	}
}

// NewLRU creates a cache. At least one limit is required; otherwise NewLRU panics.
func NewLRU[K comparable, V any](opts ...Option[K, V]) *LRU[K, V] {
	c := &LRU[K, V]{entries: make(map[K]*entry[K, V])}

	for _, opt := range opts {
		opt(c)
	}

	if c.maxEntries <= 0 && c.maxBytes <= 0 {
		panic("cache: WithMaxEntries or WithMaxBytes is required")
	}

	return c
}

// Get returns the value for key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)

		var zero V

		return zero, false
	}

	c.hits.Add(1)
	c.moveToFront(ent)

	return ent.val, true
}

// Put stores a value. Values larger than the byte limit are not stored.
func (c *LRU[K, V]) Put(key K, val V) {
	size := int64(1)
	if c.sizeFunc != nil {
		size = c.sizeFunc(val)
	}

	if c.maxBytes > 0 && size > c.maxBytes {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.entries[key]; ok {
		c.curBytes += size - ent.size
		ent.val = val
		ent.size = size
		c.moveToFront(ent)
		c.evict(0, false)

		return
	}

	c.evict(size, true)

	ent := &entry[K, V]{key: key, val: val, size: size}
	c.entries[key] = ent
	c.curBytes += size
	c.pushFront(ent)
}

// Remove deletes key if present.
func (c *LRU[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.entries[key]; ok {
		c.drop(ent)
	}
}

// Len returns the number of entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Purge removes every entry. Hit and miss counters are kept.
func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*entry[K, V])
	c.head, c.tail = nil, nil
	c.curBytes = 0
}

// Stats holds cache counters.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
	Bytes   int64 `json:"bytes"`
}

// HitRate returns hits over lookups, or 0 before the first lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

// Stats returns a snapshot of the counters.
func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: len(c.entries),
		Bytes:   c.curBytes,
	}
}

// evict drops tail entries until the limits hold with incoming bytes added
// and, when adding is set, one more entry.
func (c *LRU[K, V]) evict(incoming int64, adding bool) {
	extra := 0
	if adding {
		extra = 1
	}

	for c.tail != nil && c.maxEntries > 0 && len(c.entries)+extra > c.maxEntries {
		c.drop(c.tail)
	}

	for c.tail != nil && c.maxBytes > 0 && c.curBytes+incoming > c.maxBytes {
		c.drop(c.tail)
	}
}

func (c *LRU[K, V]) drop(ent *entry[K, V]) {
	c.unlink(ent)
	delete(c.entries, ent.key)
	c.curBytes -= ent.size
}

func (c *LRU[K, V]) moveToFront(ent *entry[K, V]) {
	if ent == c.head {
		return
	}

	c.unlink(ent)
	c.pushFront(ent)
}

func (c *LRU[K, V]) pushFront(ent *entry[K, V]) {
	ent.prev = nil
	ent.next = c.head

	if c.head != nil {
		c.head.prev = ent
	}

	c.head = ent

	if c.tail == nil {
		c.tail = ent
	}
}

func (c *LRU[K, V]) unlink(ent *entry[K, V]) {
	if ent.prev != nil {
		ent.prev.next = ent.next
	} else {
		c.head = ent.next
	}

	if ent.next != nil {
		ent.next.prev = ent.prev
	} else {
		c.tail = ent.prev
	}

	ent.prev, ent.next = nil, nil
}
