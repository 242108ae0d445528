/*
Package cache shields the aggregation packages from redundant fetches.

PURPOSE:
  A dashboard render needs members, allocations, three kinds of leave, rate
  cards, projects, stages and compositions. Fetching them all on every card
  refresh is wasteful, so the bundle is cached per (company, time range) for
  five minutes.

KEY TYPES:
  TTL[V]:     a small injectable key/value cache with expiry (Get/Set/Invalidate)
  Clock:      time source; tests substitute a FakeClock
  Dashboard:  the read-through bundle cache built on TTL

READ PATH (Dashboard.Load):
  1. Fresh entry?              -> return it
  2. Fetch every source concurrently
  3. Success                   -> store and return
  4. Failure + stale entry     -> return the stale entry
  5. Failure, nothing cached   -> return the error

RACES:
  Each fetch takes a sequence number when it starts. A fetch that started
  before the entry currently cached cannot overwrite it, so a slow request
  finishing late never replaces newer data.

SEE ALSO:
  - dashboard.go: read-through loader
  - metrics.go: prometheus counters
*/
package cache

import (
	"strings"
	"sync"
	"time"
)

// =============================================================================
// CLOCK
// =============================================================================

// Clock is the cache's time source.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// FakeClock is a settable clock for tests.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(now time.Time) *FakeClock { return &FakeClock{now: now} }

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// =============================================================================
// TTL CACHE
// =============================================================================

// Entry is a cached value with its expiry and the sequence of the write.
type Entry[V any] struct {
	Value     V
	ExpiresAt time.Time
	Seq       uint64
}

// Fresh reports whether the entry is still valid at now.
func (e Entry[V]) Fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// TTL is a concurrency-safe map with per-entry expiry. Expired entries are
// kept until overwritten or invalidated so they can be served stale.
type TTL[V any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[V]
	// fences holds, per invalidated prefix, the lowest sequence SetIfNewer
	// still accepts under it.
	fences map[string]uint64
	clock  Clock
}

// NewTTL creates an empty cache. A nil clock uses the wall clock.
func NewTTL[V any](clock Clock) *TTL[V] {
	if clock == nil {
		clock = SystemClock()
	}
	return &TTL[V]{entries: make(map[string]Entry[V]), fences: make(map[string]uint64), clock: clock}
}

// Get returns the entry for key, fresh or not.
func (c *TTL[V]) Get(key string) (Entry[V], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

// Set stores value unconditionally.
func (c *TTL[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry[V]{Value: value, ExpiresAt: c.clock.Now().Add(ttl)}
}

// SetIfNewer stores value unless the current entry was written by a fetch
// with a higher sequence, or the key was invalidated by InvalidateBefore
// with a sequence above seq. It reports whether the write happened.
func (c *TTL[V]) SetIfNewer(key string, value V, ttl time.Duration, seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[key]; ok && cur.Seq > seq {
		return false
	}
	for prefix, fence := range c.fences {
		if seq < fence && strings.HasPrefix(key, prefix) {
			return false
		}
	}
	c.entries[key] = Entry[V]{Value: value, ExpiresAt: c.clock.Now().Add(ttl), Seq: seq}
	return true
}

// Invalidate drops every key with the given prefix and returns how many were
// removed. An empty prefix clears the cache. Invalidating twice is harmless.
func (c *TTL[V]) Invalidate(prefix string) int {
	return c.InvalidateBefore(prefix, 0)
}

// InvalidateBefore is Invalidate that also refuses later SetIfNewer writes
// under prefix whose sequence is below seq. A fetch that started before the
// invalidation cannot put its result back.
func (c *TTL[V]) InvalidateBefore(prefix string, seq uint64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq > c.fences[prefix] {
		c.fences[prefix] = seq
	}
	n := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of entries, fresh or stale.
func (c *TTL[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Now exposes the cache clock.
func (c *TTL[V]) Now() time.Time { return c.clock.Now() }
