package reactive

import "log/slog"

// Runtime is the ambient context shared by every cell, memo and reaction
// created from it: the result cache and the memo and reaction stacks.
//
// Independent runtimes do not interact, which lets tests build isolated
// reactive worlds. A Runtime is not safe for concurrent use.
type Runtime struct {
	cache     *resultCache
	stacks    stacks
	logger    *slog.Logger
	observers []Observer
	stats     Stats

	// epoch numbers invalidation propagations. It starts at zero and is
	// incremented before every walk, so a fresh memoNode is never mistaken
	// for one already visited.
	epoch uint64
}

// Option configures a Runtime.
type Option func(*runtimeConfig)

type runtimeConfig struct {
	cacheCapacity int
	logger        *slog.Logger
	observers     []Observer
}

// WithCacheCapacity sets the number of memo results kept before LRU
// eviction. Non-positive values select DefaultCacheCapacity.
func WithCacheCapacity(n int) Option {
	return func(c *runtimeConfig) {
		c.cacheCapacity = n
	}
}

// WithLogger sets the runtime's logger.
// Default: slog.Default().With("component", "reactive").
func WithLogger(logger *slog.Logger) Option {
	return func(c *runtimeConfig) {
		c.logger = logger
	}
}

// WithObserver registers an observer for engine events. May be repeated;
// observers are called in registration order.
func WithObserver(o Observer) Option {
	return func(c *runtimeConfig) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// NewRuntime creates an empty runtime.
func NewRuntime(opts ...Option) *Runtime {
	cfg := runtimeConfig{cacheCapacity: DefaultCacheCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default().With("component", "reactive")
	}

	rt := &Runtime{
		logger:    cfg.logger,
		observers: cfg.observers,
	}
	rt.cache = newResultCache(rt, cfg.cacheCapacity)
	return rt
}

// Logger returns the runtime's logger.
func (rt *Runtime) Logger() *slog.Logger {
	return rt.logger
}

// Stats returns a copy of the runtime's counters.
func (rt *Runtime) Stats() Stats {
	s := rt.stats
	s.CacheEntries = rt.cache.len()
	s.CacheCapacity = rt.cache.capacity
	return s
}

// CacheLen returns the number of cached memo results.
func (rt *Runtime) CacheLen() int {
	return rt.cache.len()
}

// CacheCapacity returns the configured cache bound.
func (rt *Runtime) CacheCapacity() int {
	return rt.cache.capacity
}

// Sweep removes cache entries whose memo has been garbage collected and
// returns how many were removed. A full cache sweeps on its own before it
// evicts, at most once per capacity evictions; call Sweep to release dead
// results earlier.
func (rt *Runtime) Sweep() int {
	removed := rt.cache.sweep()
	if removed > 0 {
		rt.logger.Debug("swept dead memo results", "removed", removed)
	}
	return removed
}

// Untracked runs fn with empty memo and reaction stacks: nothing read inside
// fn is registered against the caller.
func (rt *Runtime) Untracked(fn func()) {
	saved := rt.stacks
	rt.stacks = stacks{}
	defer func() { rt.stacks = saved }()
	fn()
}

// Depth returns the current sizes of the memo and reaction stacks.
// Both are zero whenever no evaluation is in progress.
func (rt *Runtime) Depth() (memos, reactions int) {
	return rt.stacks.depth()
}

// beginPropagation starts a new invalidation walk.
func (rt *Runtime) beginPropagation() {
	rt.epoch++
}

func (rt *Runtime) emit(e Event) {
	for _, o := range rt.observers {
		o.Observe(e)
	}
}

// Stats are cumulative engine counters.
type Stats struct {
	CellReads        uint64
	WritesChanged    uint64
	WritesUnchanged  uint64
	ForcedInvalidate uint64
	CacheHits        uint64
	CacheMisses      uint64
	CacheBypasses    uint64
	CacheEvictions   uint64
	MemoComputes     uint64
	Invalidations    uint64
	CollectingRuns   uint64
	Replays          uint64
	Pruned           uint64
	Sweeps           uint64

	// CacheEntries and CacheCapacity are point-in-time values.
	CacheEntries  int
	CacheCapacity int
}
