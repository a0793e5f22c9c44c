// Package cache provides a content-addressed result store with single-flight
// computation: concurrent requests for the same key collapse into one
// underlying computation, and completed entries are immutable once written.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// Config controls capacity- and time-based eviction. Eviction is a policy
// concern only; entries are always written whole or not at all.
type Config struct {
	// Capacity is the maximum number of entries (0 = unbounded).
	Capacity int
	// TTL expires entries after the given duration (0 = never).
	TTL time.Duration
}

// DefaultConfig returns cache defaults.
func DefaultConfig() Config {
	return Config{Capacity: 128, TTL: 0}
}

// Cache maps string keys to computed values. All methods are safe for
// concurrent use.
type Cache[V any] struct {
	entries *expirable.LRU[string, V]
	group   singleflight.Group
}

// New creates a cache with the given eviction policy.
func New[V any](cfg Config) *Cache[V] {
	return &Cache[V]{
		entries: expirable.NewLRU[string, V](cfg.Capacity, nil, cfg.TTL),
	}
}

// Get returns the cached value for key, if present.
func (c *Cache[V]) Get(key string) (V, bool) {
	return c.entries.Get(key)
}

// Put stores a fully computed value. Existing entries are immutable from
// the caller's point of view; a Put for a present key is a no-op so a slow
// recomputation can never clobber the entry others already observed.
func (c *Cache[V]) Put(key string, value V) {
	if _, ok := c.entries.Get(key); ok {
		return
	}
	c.entries.Add(key, value)
}

// GetOrCompute returns the cached value for key or runs compute exactly
// once, no matter how many callers arrive concurrently. The boolean reports
// whether the value came from the cache. Failed computations are not
// stored, so a later submission retries.
func (c *Cache[V]) GetOrCompute(key string, compute func() (V, error)) (V, bool, error) {
	if v, ok := c.entries.Get(key); ok {
		return v, true, nil
	}

	shared := true
	result, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.entries.Get(key); ok {
			return v, nil
		}
		shared = false
		v, err := compute()
		if err != nil {
			return nil, err
		}
		c.Put(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	return result.(V), shared, nil
}

// Len returns the number of live entries.
func (c *Cache[V]) Len() int { return c.entries.Len() }

// Purge drops every entry.
func (c *Cache[V]) Purge() { c.entries.Purge() }
