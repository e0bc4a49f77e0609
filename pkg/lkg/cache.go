// Package lkg keeps the last known good snapshot per series so a
// transient bad poll can be masked with a recent value instead of a
// hole in the output.
package lkg

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/quotawatch/quotawatch/pkg/model"
)

// DefaultTTL is how long a remembered snapshot may be served as a
// stale fallback.
const DefaultTTL = 10 * time.Minute

type entry struct {
	snap     model.Snapshot
	storedAt time.Time
}

// Cache stores the most recent plausible snapshot per series name.
// Entries are overwritten in place; the working set is bounded by the
// small fixed set of tracked series.
type Cache struct {
	store *ristretto.Cache
	ttl   time.Duration
	now   func() time.Time
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a cache with the given default TTL (DefaultTTL if ttl
// is zero or negative).
func New(ttl time.Duration, opts ...Option) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        1 << 10,
		MaxCost:            1 << 10,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("init lkg cache: %w", err)
	}
	c := &Cache{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the default freshness window.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Remember stores a snapshot tagged with the current wall-clock time.
// Implausible snapshots are ignored; the cache only ever serves
// values that passed the gate.
func (c *Cache) Remember(name string, snap model.Snapshot) {
	if !model.IsPlausible(snap) {
		return
	}
	c.store.Set(name, entry{snap: snap, storedAt: c.now()}, 1)
	// Ristretto applies sets asynchronously; wait so a remember
	// followed by a lookup in the same poll cycle always hits.
	c.store.Wait()
}

// GetIfFresh returns the remembered snapshot for name if it was
// stored no longer than maxAge ago (the cache TTL when maxAge <= 0).
// Absence is not an error.
func (c *Cache) GetIfFresh(name string, maxAge time.Duration) (model.Snapshot, bool) {
	if maxAge <= 0 {
		maxAge = c.ttl
	}
	v, ok := c.store.Get(name)
	if !ok {
		return model.Snapshot{}, false
	}
	e, ok := v.(entry)
	if !ok {
		return model.Snapshot{}, false
	}
	if c.now().Sub(e.storedAt) > maxAge {
		return model.Snapshot{}, false
	}
	return e.snap, true
}

// Close releases the underlying cache.
func (c *Cache) Close() {
	c.store.Close()
}
