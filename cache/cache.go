package cache

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/streamgrab/models"
)

// Cache is a TTL-bounded in-memory store of the last resolved stream URL per
// channel. It is safe for concurrent use.
//
// There is no background sweep: an entry older than the TTL is treated as
// absent and deleted the next time it is looked up.
type Cache struct {
	mu         sync.Mutex
	store      map[string]models.CacheEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source. Tests use it to advance time
// deterministically.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a Cache holding at most maxEntries entries for ttl each.
func New(ttl time.Duration, maxEntries int, opts ...Option) *Cache {
	c := &Cache{
		store:      make(map[string]models.CacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// TTL returns the configured entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the entry for channel if it is younger than the TTL.
func (c *Cache) Get(channel string) (models.CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.store[channel]
	if !ok {
		return models.CacheEntry{}, false
	}
	if c.now().Sub(e.InsertedAt) >= c.ttl {
		delete(c.store, channel)
		return models.CacheEntry{}, false
	}
	return e, true
}

// Set stores url and alternates for channel, overwriting any previous entry.
// If the cache is at capacity, a random entry is evicted to make room.
func (c *Cache) Set(channel, url string, alternates []string) models.CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[channel]; !exists && c.maxEntries > 0 && len(c.store) >= c.maxEntries {
		// Map iteration order is random in Go.
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	e := models.CacheEntry{
		Channel:    channel,
		URL:        url,
		Alternates: slices.Clone(alternates),
		InsertedAt: c.now(),
	}
	c.store[channel] = e
	return e
}

// Delete removes the entry for channel and reports whether one existed.
func (c *Cache) Delete(channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.store[channel]
	delete(c.store, channel)
	return ok
}

// Clear removes every entry and returns how many were dropped.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.store)
	clear(c.store)
	return n
}

// Len returns the number of stored entries, including ones that have expired
// but not yet been looked up.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.store)
}

// Entries returns a snapshot of every unexpired entry, sorted by channel.
func (c *Cache) Entries() []models.CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	out := make([]models.CacheEntry, 0, len(c.store))
	for _, e := range c.store {
		if now.Sub(e.InsertedAt) < c.ttl {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b models.CacheEntry) int {
		return strings.Compare(a.Channel, b.Channel)
	})
	return out
}
