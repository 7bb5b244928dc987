// Package cache provides a size-bounded LRU shared by the icon loader and
// the rendered tile cache.
package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// LRU holds values under string keys and evicts the least recently used
// entries once the summed entry sizes exceed the limit.
//
// Example:
//
//	tiles := cache.New[[]byte](64<<20, func(b []byte) int64 { return int64(len(b)) })
//	png, err := tiles.Get("14/8185/5448", func() ([]byte, error) {
//	    return render(14, 8185, 5448)
//	})
type LRU[V any] struct {
	maxSize  int64
	usedSize int64
	sizeOf   func(V) int64
	entries  map[string]*entry[V]
	lru      *list.List // most recent at front
	mu       sync.RWMutex

	hits, misses int
}

type entry[V any] struct {
	key          string
	value        V
	size         int64
	element      *list.Element
	lastAccessed time.Time
	accessCount  int
}

// New creates a cache holding at most maxSize bytes as measured by sizeOf.
// A maxSize of 0 means unbounded.
func New[V any](maxSize int64, sizeOf func(V) int64) *LRU[V] {
	return &LRU[V]{
		maxSize: maxSize,
		sizeOf:  sizeOf,
		entries: make(map[string]*entry[V]),
		lru:     list.New(),
	}
}

// Lookup returns the cached value of key and marks it recently used.
func (c *LRU[V]) Lookup(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	e.lastAccessed = time.Now()
	e.accessCount++
	c.lru.MoveToFront(e.element)
	return e.value, true
}

// Get returns the cached value of key or calls load on a miss and caches
// its result. A value too large for the cache is returned uncached.
func (c *LRU[V]) Get(key string, load func() (V, error)) (V, error) {
	if v, ok := c.Lookup(key); ok {
		return v, nil
	}

	v, err := load()
	if err != nil {
		var zero V
		return zero, fmt.Errorf("load %s: %w", key, err)
	}
	_ = c.Add(key, v)
	return v, nil
}

// Add stores value under key, evicting old entries to make room.
func (c *LRU[V]) Add(key string, value V) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := c.sizeOf(value)
	if c.maxSize > 0 && size > c.maxSize {
		return fmt.Errorf("entry too large for cache (%d bytes > %d bytes max)", size, c.maxSize)
	}

	if e, ok := c.entries[key]; ok {
		c.usedSize += size - e.size
		e.value, e.size = value, size
		e.lastAccessed = time.Now()
		e.accessCount++
		c.lru.MoveToFront(e.element)
		c.evict()
		return nil
	}

	e := &entry[V]{key: key, value: value, size: size, lastAccessed: time.Now(), accessCount: 1}
	e.element = c.lru.PushFront(e)
	c.entries[key] = e
	c.usedSize += size
	c.evict()
	return nil
}

// evict drops entries from the back until the cache fits. Must be called
// with c.mu locked.
func (c *LRU[V]) evict() {
	if c.maxSize <= 0 {
		return
	}
	for c.usedSize > c.maxSize && c.lru.Len() > 1 {
		back := c.lru.Back()
		e := back.Value.(*entry[V])
		c.lru.Remove(back)
		delete(c.entries, e.key)
		c.usedSize -= e.size
	}
}

// Remove drops key from the cache.
func (c *LRU[V]) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.lru.Remove(e.element)
		delete(c.entries, key)
		c.usedSize -= e.size
	}
}

// Clear empties the cache.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry[V])
	c.lru.Init()
	c.usedSize = 0
}

// Stats holds cache counters.
type Stats struct {
	Entries     int
	UsedSize    int64
	MaxSize     int64
	TotalAccess int
	Hits        int
	Misses      int
}

// Stats returns a snapshot of the cache counters.
func (c *LRU[V]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := 0
	for _, e := range c.entries {
		total += e.accessCount
	}
	return Stats{
		Entries:     len(c.entries),
		UsedSize:    c.usedSize,
		MaxSize:     c.maxSize,
		TotalAccess: total,
		Hits:        c.hits,
		Misses:      c.misses,
	}
}
