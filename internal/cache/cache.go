// Package cache implements the bounded, TTL-bearing read-through cache:
// an LRU eviction policy on top of hashicorp/golang-lru/v2, with
// lazy expiry on access plus an eager sweep the teacher's scheduler
// drives on an interval, exactly the way the teacher schedules its own
// background jobs.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// entry is the value actually stored in the underlying LRU; ttl is
// relative to insertedAt, not an absolute deadline.
type entry[V any] struct {
	value      V
	insertedAt time.Time
	ttl        time.Duration
	lastAccess time.Time
}

// Stats are the monotonic counters requires.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Cache is a generic, bounded, TTL-aware LRU. Capacity is enforced by
// the underlying lru.Cache; TTL is enforced by Cache itself since the
// underlying library has no notion of expiry.
type Cache[K comparable, V any] struct {
	mu    sync.Mutex
	lru   *lru.Cache[K, *entry[V]]
	stats Stats
	now   func() time.Time

	onEvict func()
}

// New builds a Cache of the given capacity. The LRU's evict callback is
// the single place evictions are counted; OnEvict lets a caller wire
// them into internal/observability's Prometheus counters without this
// package importing that one.
func New[K comparable, V any](capacity int) (*Cache[K, V], error) {
	c := &Cache[K, V]{now: time.Now}
	l, err := lru.NewWithEvict[K, *entry[V]](capacity, func(_ K, _ *entry[V]) {
		c.stats.Evictions++
		if c.onEvict != nil {
			c.onEvict()
		}
	})
	if err != nil {
		return nil, err
	}
	c.lru = l
	return c, nil
}

// OnEvict registers a callback fired (under the cache's lock) whenever
// an entry leaves the underlying LRU: a capacity eviction, a TTL expiry
// found by Get or Sweep, or an Invalidate.
func (c *Cache[K, V]) OnEvict(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// Get returns the cached value for k, or ok=false on a miss or expiry.
// Expiry is checked lazily here
func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(k)
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	if c.now().After(e.insertedAt.Add(e.ttl)) {
		c.lru.Remove(k) // the evict callback counts the eviction
		c.stats.Misses++
		var zero V
		return zero, false
	}
	e.lastAccess = c.now()
	c.stats.Hits++
	return e.value, true
}

// Set stores v under k with the given ttl, overwriting any existing
// entry.
func (c *Cache[K, V]) Set(k K, v V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.lru.Add(k, &entry[V]{value: v, insertedAt: now, ttl: ttl, lastAccess: now})
}

// Invalidate drops k if present.
func (c *Cache[K, V]) Invalidate(k K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(k)
}

// Stats returns a snapshot of the monotonic hit/miss/eviction counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Len reports the current number of live entries, including any that
// are TTL-expired but not yet swept.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Sweep eagerly evicts every TTL-expired entry. Meant to run on the
// scheduler's T_sweep interval (default 60s).
func (c *Cache[K, V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, k := range c.lru.Keys() {
		e, ok := c.lru.Peek(k)
		if !ok {
			continue
		}
		if now.After(e.insertedAt.Add(e.ttl)) {
			c.lru.Remove(k) // the evict callback counts the eviction
			removed++
		}
	}
	return removed
}

// FunctionKey derives the stable SHA-256 cache key for function-result
// caching: a stable serialization of (name, args, kwargs). json.Marshal
// on a map is not key-order-stable across calls by itself, so callers
// pass args/kwargs as already-ordered slices/structs rather than maps
// with nondeterministic iteration exposed to callers.
func FunctionKey(name string, args any, kwargs any) string {
	payload := struct {
		Name   string `json:"name"`
		Args   any    `json:"args"`
		Kwargs any    `json:"kwargs"`
	}{name, args, kwargs}

	b, _ := json.Marshal(payload)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
