package store

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

// ListCacheEntry records the state of one list-fetch parameterization.
type ListCacheEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	IsFetching bool      `json:"isFetching"`
}

// ResourceCacheKey derives the list cache key for an entity kind and filter.
func ResourceCacheKey(kind, filter string) string {
	return kind + ":" + filter
}

// Cache is a resource-name keyed mirror of one entity kind.
//
// Reads never block on the network. Remote loads are coalesced: at most one load per
// resource name and one list fetch per cache key is outstanding at any time, and every
// concurrent caller for that key shares its result. The lock is never held across a load.
type Cache[T any] struct {
	kind    string
	nameOf  func(*T) string
	unknown func() *T
	now     func() time.Time

	mu        sync.RWMutex
	entries   map[string]*T
	order     []string
	listCache map[string]ListCacheEntry

	loads singleflight.Group
	lists singleflight.Group
}

// NewCache creates an empty cache. unknown builds the placeholder returned by Get on a miss.
func NewCache[T any](kind string, nameOf func(*T) string, unknown func() *T) *Cache[T] {
	return &Cache[T]{
		kind:      kind,
		nameOf:    nameOf,
		unknown:   unknown,
		now:       time.Now,
		entries:   make(map[string]*T),
		listCache: make(map[string]ListCacheEntry),
	}
}

// Kind returns the entity kind label.
func (c *Cache[T]) Kind() string { return c.kind }

// Set writes items keyed by their resource names, overwriting existing entries.
func (c *Cache[T]) Set(items ...*T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range items {
		name := c.nameOf(item)
		if _, ok := c.entries[name]; !ok {
			c.order = append(c.order, name)
		}
		c.entries[name] = item
	}
	cacheEntries.WithLabelValues(c.kind).Set(float64(len(c.entries)))
}

// Lookup returns the cached entity for name.
func (c *Cache[T]) Lookup(name string) (*T, bool) {
	c.mu.RLock()
	item, ok := c.entries[name]
	c.mu.RUnlock()
	if ok {
		cacheLookups.WithLabelValues(c.kind, "hit").Inc()
	} else {
		cacheLookups.WithLabelValues(c.kind, "miss").Inc()
	}
	return item, ok
}

// Get returns the cached entity for name or a fresh placeholder. It never fails.
func (c *Cache[T]) Get(name string) *T {
	if item, ok := c.Lookup(name); ok {
		return item
	}
	return c.unknown()
}

// Values returns every cached entity in first-insertion order.
func (c *Cache[T]) Values() []*T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*T, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.entries[name])
	}
	return out
}

// Len returns the number of cached entities.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetOrFetch returns the cached entity for name, or runs load once for all concurrent
// callers asking for the same uncached name. load is expected to Set its result.
func (c *Cache[T]) GetOrFetch(ctx context.Context, name string, load func(ctx context.Context) (*T, error)) (*T, error) {
	if item, ok := c.Lookup(name); ok {
		return item, nil
	}
	v, err := coalesce(ctx, &c.loads, name, func(ctx context.Context) (any, error) {
		// A load that finished between the lookup and this call already filled the entry.
		c.mu.RLock()
		item, ok := c.entries[name]
		c.mu.RUnlock()
		if ok {
			return item, nil
		}
		remoteFetches.WithLabelValues(c.kind, "get").Inc()
		timer := prometheus.NewTimer(fetchDuration.WithLabelValues(c.kind, "get"))
		defer timer.ObserveDuration()
		return load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

// ListAll runs fetch for the list cache key, sharing one call among concurrent callers.
// The entry is marked in flight before fetch and settled afterwards whatever the outcome:
// on success the timestamp is refreshed; on failure an entry this call created is
// dropped so a later caller can try again.
func (c *Cache[T]) ListAll(ctx context.Context, key string, fetch func(ctx context.Context) error) error {
	_, err := coalesce(ctx, &c.lists, key, func(ctx context.Context) (_ any, err error) {
		c.mu.Lock()
		_, existed := c.listCache[key]
		if !existed {
			c.listCache[key] = ListCacheEntry{Timestamp: c.now(), IsFetching: true}
		}
		c.mu.Unlock()

		defer func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			switch {
			case err == nil:
				c.listCache[key] = ListCacheEntry{Timestamp: c.now(), IsFetching: false}
			case !existed:
				delete(c.listCache, key)
			default:
				entry := c.listCache[key]
				entry.IsFetching = false
				c.listCache[key] = entry
			}
		}()

		remoteFetches.WithLabelValues(c.kind, "list").Inc()
		timer := prometheus.NewTimer(fetchDuration.WithLabelValues(c.kind, "list"))
		defer timer.ObserveDuration()
		return nil, fetch(ctx)
	})
	return err
}

// CacheEntry returns the list cache entry for key.
func (c *Cache[T]) CacheEntry(key string) (ListCacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.listCache[key]
	return entry, ok
}

// Reset drops every cached entity and list cache entry.
func (c *Cache[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*T)
	c.order = nil
	c.listCache = make(map[string]ListCacheEntry)
	cacheEntries.WithLabelValues(c.kind).Set(0)
}

// coalesce runs fn at most once per key at a time. The shared call is detached from the
// caller's cancellation so one caller leaving does not fail the others; each caller
// still stops waiting when its own ctx is done.
func coalesce(ctx context.Context, group *singleflight.Group, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	detached := context.WithoutCancel(ctx)
	ch := group.DoChan(key, func() (any, error) {
		return fn(detached)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
