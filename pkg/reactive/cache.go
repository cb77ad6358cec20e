package reactive

import (
	"weak"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// DefaultCacheCapacity is the number of memo results a runtime keeps.
const DefaultCacheCapacity = 128

// cacheKey is the identity of a memo. Weak pointers stay comparable after
// the memo is collected, so a dead memo's entry can still be removed by key.
type cacheKey = weak.Pointer[memoNode]

// resultCache is the bounded LRU store of memo results.
//
// Values are type-erased; lookups assert the expected type and treat a
// mismatch as a miss. An entry is valid until an invalidation removes it or
// LRU pressure evicts it.
type resultCache struct {
	rt       *Runtime
	lru      *simplelru.LRU[cacheKey, any]
	capacity int

	// evictsSinceSweep throttles the sweep a full cache runs before
	// evicting: it runs again only after capacity evictions, so inserts into
	// a full cache stay amortized O(1).
	evictsSinceSweep int
}

func newResultCache(rt *Runtime, capacity int) *resultCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	// NewLRU only fails for a non-positive size.
	lru, _ := simplelru.NewLRU[cacheKey, any](capacity, nil)
	return &resultCache{rt: rt, lru: lru, capacity: capacity, evictsSinceSweep: capacity}
}

// lookup returns the cached result for key, promoting it to most recently
// used. While the innermost reaction is collecting, the lookup is forced to
// miss and any existing entry is dropped, so the memo's closure runs and the
// cells beneath it see the collecting reaction.
func lookup[T any](c *resultCache, key cacheKey, ref NodeRef) (T, bool) {
	var zero T
	rt := c.rt

	if rt.stacks.collecting() {
		c.lru.Remove(key)
		rt.stats.CacheBypasses++
		rt.emit(Event{Kind: EventCacheBypass, Node: ref, Collecting: true})
		return zero, false
	}

	raw, ok := c.lru.Get(key)
	if !ok {
		rt.stats.CacheMisses++
		rt.emit(Event{Kind: EventCacheMiss, Node: ref})
		return zero, false
	}

	value, ok := raw.(T)
	if !ok {
		rt.stats.CacheMisses++
		rt.logger.Debug("cached result has unexpected type", "memo", ref.String())
		rt.emit(Event{Kind: EventCacheMiss, Node: ref})
		return zero, false
	}

	rt.stats.CacheHits++
	rt.emit(Event{Kind: EventCacheHit, Node: ref})
	return value, true
}

// insert stores value under key and returns it. If the cache is full and a
// sweep is due, dead entries are swept first and the least recently used
// entry is evicted only if that did not free a slot.
func insert[T any](c *resultCache, key cacheKey, value T) T {
	if !c.lru.Contains(key) && c.lru.Len() >= c.capacity {
		if c.evictsSinceSweep < c.capacity || c.sweep() == 0 {
			c.evictOldest()
		}
	}
	c.lru.Add(key, value)
	return value
}

// remove drops the entry for key. Reports whether one existed.
func (c *resultCache) remove(key cacheKey) bool {
	return c.lru.Remove(key)
}

// contains reports whether key has an entry, without touching recency.
func (c *resultCache) contains(key cacheKey) bool {
	return c.lru.Contains(key)
}

func (c *resultCache) len() int {
	return c.lru.Len()
}

func (c *resultCache) evictOldest() {
	key, _, ok := c.lru.RemoveOldest()
	if !ok {
		return
	}
	c.evictsSinceSweep++
	rt := c.rt
	rt.stats.CacheEvictions++

	ref := NodeRef{Type: NodeMemo}
	if n := key.Value(); n != nil {
		ref = n.ref()
	}
	rt.logger.Debug("evicted memo result", "memo", ref.String(), "capacity", c.capacity)
	rt.emit(Event{Kind: EventCacheEvict, Node: ref})
}

// sweep removes entries whose memo has been collected.
func (c *resultCache) sweep() int {
	c.evictsSinceSweep = 0
	c.rt.stats.Sweeps++
	removed := 0
	for _, key := range c.lru.Keys() {
		if key.Value() == nil {
			c.lru.Remove(key)
			removed++
		}
	}
	return removed
}
