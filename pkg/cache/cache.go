// Package cache is the bounded TTL response cache in front of the remote
// reputation and resolution services. It has no background janitor: expiry is
// checked on read and capacity is enforced on write.
package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/arshiaxbt/Aura/internal/metrics"
)

// DefaultCeiling bounds the number of entries a Cache holds.
const DefaultCeiling = 500

// Key builds the request fingerprint for a lookup of the given kind.
func Key(kind, id string) string {
	return kind + ":" + id
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache maps request fingerprints to payloads. It is safe for concurrent use
// because fetches run off the page loop.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	ceiling int
	now     func() time.Time
	metrics *metrics.Metrics
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	ceiling int
	now     func() time.Time
	metrics *metrics.Metrics
}

// WithCeiling overrides DefaultCeiling. Values below one are ignored.
func WithCeiling(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.ceiling = n
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithMetrics reports evictions to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func New[V any](opts ...Option) *Cache[V] {
	o := options{ceiling: DefaultCeiling, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		entries: make(map[string]entry[V]),
		ceiling: o.ceiling,
		now:     o.now,
		metrics: o.metrics,
	}
}

// Get returns the value under key. An entry past its expiry is deleted and
// reported absent.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		c.metrics.CacheEvicted("expired", 1)
		return zero, false
	}
	return e.value, true
}

// Put stores value under key for ttl. When a new key would push the cache
// past its ceiling, expired entries go first, then the entries closest to
// expiry.
func (c *Cache[V]) Put(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.ceiling {
		c.purgeExpired(now)
		if len(c.entries) >= c.ceiling {
			c.evictOldest(len(c.entries) - c.ceiling + 1)
		}
	}
	c.entries[key] = entry[V]{value: value, expiresAt: now.Add(ttl)}
}

// Delete drops key if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len counts stored entries, expired ones included until they are purged.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops everything.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry[V])
	c.mu.Unlock()
}

func (c *Cache[V]) purgeExpired(now time.Time) {
	n := 0
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			n++
		}
	}
	c.metrics.CacheEvicted("expired", n)
}

func (c *Cache[V]) evictOldest(n int) {
	type aged struct {
		key string
		at  time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{k, e.expiresAt})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].at.Equal(all[j].at) {
			return all[i].key < all[j].key
		}
		return all[i].at.Before(all[j].at)
	})
	if n > len(all) {
		n = len(all)
	}
	for _, a := range all[:n] {
		delete(c.entries, a.key)
	}
	c.metrics.CacheEvicted("capacity", n)
}
