// Package blogfeed serves the blog list from a single time-bounded cache slot
// in front of the blog index scraper.
package blogfeed

import (
	"sync"
	"time"

	"github.com/vedicportal/portal/internal/portal"
)

// DefaultTTL is how long a scraped list stays fresh.
const DefaultTTL = 24 * time.Hour

// Cache holds the most recent successful scrape. The zero fetchedAt means the
// slot has never been filled.
type Cache struct {
	mu        sync.RWMutex
	clock     portal.Clock
	ttl       time.Duration
	blogs     []portal.BlogEntry
	fetchedAt time.Time
}

// NewCache returns an empty cache. A non-positive ttl selects DefaultTTL.
func NewCache(clock portal.Clock, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{clock: clock, ttl: ttl}
}

// IsValid reports whether the slot holds at least one entry younger than the TTL.
func (c *Cache) IsValid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.fetchedAt.IsZero() || len(c.blogs) == 0 {
		return false
	}
	return c.clock.Now().Sub(c.fetchedAt) < c.ttl
}

// Get returns the cached entries and the time they were stored.
func (c *Cache) Get() ([]portal.BlogEntry, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blogs, c.fetchedAt
}

// Set replaces the slot with blogs stamped at the current time and returns
// the stamp. An empty list leaves the slot untouched and returns the zero time.
func (c *Cache) Set(blogs []portal.BlogEntry) time.Time {
	if len(blogs) == 0 {
		return time.Time{}
	}
	stored := append([]portal.BlogEntry(nil), blogs...)
	now := c.clock.Now()
	c.mu.Lock()
	c.blogs = stored
	c.fetchedAt = now
	c.mu.Unlock()
	return now
}
