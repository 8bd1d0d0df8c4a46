// Package cache provides a process-wide TTL cache with request coalescing.
//
// Concurrent misses on the same key share a single in-flight computation via
// singleflight, so a burst of identical reads costs the backing store one
// round-trip. Eviction is opportunistic: expired entries are swept only when
// the entry count crosses a ceiling, which keeps the hot path O(1) at the
// cost of entries occasionally outliving their nominal TTL under light load.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrNonPositiveTTL flags a programmer error: caching forever (or never) is
// never what the caller meant.
var ErrNonPositiveTTL = errors.New("cache: ttl must be positive")

// DefaultMaxEntries is the sweep ceiling used by New.
const DefaultMaxEntries = 1024

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is safe for unbounded concurrent use. Construct one per process and
// inject it; tests get a fresh instance each.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	group      singleflight.Group
	maxEntries int
	now        func() time.Time
}

// New returns a Cache with the default sweep ceiling.
func New() *Cache {
	return NewWithLimit(DefaultMaxEntries)
}

// NewWithLimit returns a Cache that sweeps expired entries whenever the
// entry count exceeds maxEntries after an insert.
func NewWithLimit(maxEntries int) *Cache {
	return &Cache{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// GetOrCompute returns the cached value for key, or runs compute to populate
// it. Concurrent callers of a cold key share one compute invocation and all
// receive its result — including its error, in which case nothing is cached
// and the next call retries cleanly.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) (any, error)) (any, error) {
	if ttl <= 0 {
		return nil, ErrNonPositiveTTL
	}
	if v, ok := c.lookup(key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		// A caller that lost the claim race may arrive here after the winner
		// already stored the value; serve it rather than recompute.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, v, ttl)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Invalidate drops a key immediately.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len reports the current entry count, expired entries included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) lookup(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) store(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
	if len(c.entries) > c.maxEntries {
		c.sweepLocked()
	}
}

// sweepLocked removes every expired entry. Caller holds mu.
func (c *Cache) sweepLocked() {
	now := c.now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}
