// Package cache provides the read-through cache the engine uses for
// read-mostly shared state such as the catalog ID list.
//
// It wraps an expiring LRU and collapses concurrent loads of the same key
// into a single call.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"
)

var (
	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tierledger_cache_hits_total",
		Help: "Read-through cache hits.",
	}, []string{"cache"})
	cacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tierledger_cache_misses_total",
		Help: "Read-through cache misses.",
	}, []string{"cache"})
	cacheClearsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tierledger_cache_clears_total",
		Help: "Explicit cache invalidations.",
	}, []string{"cache"})
)

// LoadFunc produces the value for a missing key.
type LoadFunc[V any] func(ctx context.Context) (V, error)

// Cache is a named, size-bounded cache with per-entry TTL.
// The zero value is not usable; construct with New.
type Cache[K comparable, V any] struct {
	name  string
	lru   *expirable.LRU[K, V]
	group singleflight.Group

	hits   prometheus.Counter
	misses prometheus.Counter
	clears prometheus.Counter
}

// New creates a cache. size <= 0 means unbounded; ttl <= 0 means entries
// never expire on their own.
func New[K comparable, V any](name string, size int, ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		name:   name,
		lru:    expirable.NewLRU[K, V](size, nil, ttl),
		hits:   cacheHitsTotal.WithLabelValues(name),
		misses: cacheMissesTotal.WithLabelValues(name),
		clears: cacheClearsTotal.WithLabelValues(name),
	}
}

// Name returns the metrics label of the cache.
func (c *Cache[K, V]) Name() string { return c.name }

// Get returns a cached value.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		c.hits.Inc()
	} else {
		c.misses.Inc()
	}
	return v, ok
}

// Set stores a value.
func (c *Cache[K, V]) Set(key K, value V) {
	c.lru.Add(key, value)
}

// Delete drops one key.
func (c *Cache[K, V]) Delete(key K) {
	c.lru.Remove(key)
}

// GetOrLoad returns the cached value for key, calling load on a miss.
// Concurrent misses for the same key share one load. Errors are not cached.
func (c *Cache[K, V]) GetOrLoad(ctx context.Context, key K, load LoadFunc[V]) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	res, err, _ := c.group.Do(fmt.Sprint(key), func() (any, error) {
		if v, ok := c.lru.Peek(key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		c.lru.Add(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	v, _ := res.(V)
	return v, nil
}

// Clear drops every entry.
func (c *Cache[K, V]) Clear() {
	c.lru.Purge()
	c.clears.Inc()
}

// Len returns the number of live entries.
func (c *Cache[K, V]) Len() int { return c.lru.Len() }
