/*
cache.go - Reconciliation Cache

PURPOSE:
  Process-wide holding area for fragments awaiting completeness, keyed by
  device identifier. A device is present in the cache if and only if it has
  at least one pending, unmerged category.

CONCURRENCY:
  A single mutex guards all reads and writes. The multi-step sequence
  "check completeness, then take-and-clear" spans categories and therefore
  needs one critical section; callers that must make the whole decision
  atomic (the ingestion pipeline) additionally serialize at their level.
  TakeAndClear is exposed as a single operation so no reader can observe a
  half-cleared entry.

EXPIRY:
  By default, half-complete entries are kept forever: a device that only
  ever sends one category holds a permanent entry. ExpireAfter makes that
  bound configurable; zero keeps the never-expire default. Expired entries
  are reaped lazily on Put.

SEE ALSO:
  - merge.go: Consumes TakeAndClear's result
  - ingest/pipeline.go: The only writer in production
*/
package telemetry

import (
	"sync"
	"time"
)

// DeviceCacheEntry maps category name to the most recently received fragment
// for one device.
type DeviceCacheEntry map[Category]Fragment

type cacheEntry struct {
	fragments DeviceCacheEntry
	updatedAt time.Time
}

// Cache is the reconciliation cache. The zero value is not usable; use
// NewCache.
type Cache struct {
	mu          sync.Mutex
	entries     map[DeviceID]*cacheEntry
	expireAfter time.Duration
	now         func() time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithExpiry discards a device's pending fragments if no fragment for that
// device arrived within d. Zero means entries never expire.
func WithExpiry(d time.Duration) CacheOption {
	return func(c *Cache) { c.expireAfter = d }
}

// withClock overrides the cache's clock. Tests only.
func withClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// NewCache creates an empty reconciliation cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries: make(map[DeviceID]*cacheEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Put stores or overwrites the fragment for device+category (last-write-wins
// per category) and returns the set of category names now present for that
// device.
func (c *Cache) Put(device DeviceID, category Category, fragment Fragment) []Category {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reapExpiredLocked()

	entry := c.entries[device]
	if entry == nil {
		entry = &cacheEntry{fragments: make(DeviceCacheEntry)}
		c.entries[device] = entry
	}
	entry.fragments[category] = fragment
	entry.updatedAt = c.now()

	present := make([]Category, 0, len(entry.fragments))
	for _, cat := range Categories {
		if _, ok := entry.fragments[cat]; ok {
			present = append(present, cat)
		}
	}
	return present
}

// IsComplete reports whether every required category has a stored fragment
// for the device.
func (c *Cache) IsComplete(device DeviceID, required []Category) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.entries[device]
	if entry == nil {
		return false
	}
	for _, cat := range required {
		if _, ok := entry.fragments[cat]; !ok {
			return false
		}
	}
	return true
}

// TakeAndClear atomically removes and returns the device's full cache entry.
// Returns nil if the device has no pending fragments. After TakeAndClear, a
// late fragment for the same device starts a fresh entry.
func (c *Cache) TakeAndClear(device DeviceID) DeviceCacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.entries[device]
	if entry == nil {
		return nil
	}
	delete(c.entries, device)
	return entry.fragments
}

// Present returns the categories currently cached for the device, in
// Categories order. Empty when the device has no pending fragments.
func (c *Cache) Present(device DeviceID) []Category {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.entries[device]
	if entry == nil {
		return nil
	}
	var present []Category
	for _, cat := range Categories {
		if _, ok := entry.fragments[cat]; ok {
			present = append(present, cat)
		}
	}
	return present
}

// Len returns the number of devices with pending fragments.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// reapExpiredLocked drops every entry older than expireAfter. Device count
// bounds the map, so a full scan per Put is acceptable.
func (c *Cache) reapExpiredLocked() {
	if c.expireAfter <= 0 {
		return
	}
	cutoff := c.now().Add(-c.expireAfter)
	for device, entry := range c.entries {
		if entry.updatedAt.Before(cutoff) {
			delete(c.entries, device)
		}
	}
}
