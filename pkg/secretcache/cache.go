// Package secretcache holds a single credential in memory and refreshes it
// from its source once the cached copy is older than the TTL.
package secretcache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rundemo/rundemo/pkg/models"
)

// DefaultTTL is how long a fetched value is served without refreshing.
const DefaultTTL = 5 * time.Minute

// ErrEmptyValue is returned when the fetch function succeeds with an empty value.
var ErrEmptyValue = errors.New("secretcache: fetched value is empty")

// FetchFunc retrieves the current value from the authoritative source.
type FetchFunc func(ctx context.Context) (string, error)

type entry struct {
	value     string
	fetchedAt time.Time
}

// Cache holds at most one value. Entries are replaced wholesale, never
// mutated. Concurrent callers that both observe a stale entry each refresh it;
// the last writer wins.
type Cache struct {
	ttl   time.Duration
	now   func() time.Time
	entry atomic.Pointer[entry]

	hits      atomic.Int64
	misses    atomic.Int64
	refreshes atomic.Int64
	failures  atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty Cache. A non-positive ttl selects DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetOrFetch returns the cached value while it is younger than the TTL.
// Otherwise it calls fetch and caches the result. When fetch fails the
// previous entry is left as it was and the error is returned.
func (c *Cache) GetOrFetch(ctx context.Context, fetch FetchFunc) (string, error) {
	if e := c.entry.Load(); e != nil && c.now().Sub(e.fetchedAt) < c.ttl {
		c.hits.Add(1)
		return e.value, nil
	}
	c.misses.Add(1)

	value, err := fetch(ctx)
	if err == nil && value == "" {
		err = ErrEmptyValue
	}
	if err != nil {
		c.failures.Add(1)
		return "", err
	}

	c.entry.Store(&entry{value: value, fetchedAt: c.now()})
	c.refreshes.Add(1)
	return value, nil
}

// Stats returns cache counters and freshness.
func (c *Cache) Stats() models.CacheStats {
	s := models.CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Refreshes: c.refreshes.Load(),
		Failures:  c.failures.Load(),
	}
	if e := c.entry.Load(); e != nil {
		s.FetchedAt = e.fetchedAt
		s.Fresh = c.now().Sub(e.fetchedAt) < c.ttl
	}
	return s
}
