package telemetry

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/reactivecache/pkg/reactive"
)

// MetricsConfig configures the Prometheus observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "reactive").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for write propagation duration.
	// Default: exponential from 1µs to ~16ms.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus observer.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace:   "reactive",
		Subsystem:   "",
		ConstLabels: nil,
		Buckets:     prometheus.ExponentialBuckets(1e-6, 4, 8),
		Registry:    prometheus.DefaultRegisterer,
	}
}

// Metrics is a reactive.Observer that exports engine activity to Prometheus.
//
// Metrics collected:
//   - reactive_cell_reads_total: Counter of cell reads
//   - reactive_cell_writes_total: Counter of writes by changed ("true"/"false")
//   - reactive_cache_lookups_total: Counter of memo lookups by result (hit, miss, bypass)
//   - reactive_cache_evictions_total: Counter of LRU evictions
//   - reactive_memo_computations_total: Counter of memo closure runs
//   - reactive_invalidations_total: Counter of memo invalidations
//   - reactive_reaction_runs_total: Counter of reaction runs by mode (collecting, replay)
//   - reactive_reaction_disposals_total: Counter of disposed reactions
//   - reactive_write_propagation_seconds: Histogram of time from a changed
//     write to the end of its propagation
//   - reactive_cache_entries / reactive_cache_capacity: Gauges set by ObserveStats
type Metrics struct {
	cellReads         prometheus.Counter
	cellWrites        *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	cacheEvictions    prometheus.Counter
	memoComputes      prometheus.Counter
	invalidations     prometheus.Counter
	reactionRuns      *prometheus.CounterVec
	reactionDisposals prometheus.Counter
	writePropagation  prometheus.Histogram
	cacheEntries      prometheus.Gauge
	cacheCapacity     prometheus.Gauge

	mu     sync.Mutex
	writes []time.Time
}

var _ reactive.Observer = (*Metrics)(nil)

// NewMetrics registers the engine metrics and returns an observer that
// updates them. Register it with reactive.WithObserver.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	rt := reactive.NewRuntime(
//	    reactive.WithObserver(telemetry.NewMetrics(telemetry.WithRegistry(reg))),
//	)
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		cellReads: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cell_reads_total",
			Help:        "Total number of cell reads",
			ConstLabels: config.ConstLabels,
		}),

		cellWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cell_writes_total",
			Help:        "Total number of cell writes by whether the value changed",
			ConstLabels: config.ConstLabels,
		}, []string{"changed"}),

		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cache_lookups_total",
			Help:        "Total number of memo result lookups by result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		cacheEvictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cache_evictions_total",
			Help:        "Total number of memo results evicted by LRU pressure",
			ConstLabels: config.ConstLabels,
		}),

		memoComputes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "memo_computations_total",
			Help:        "Total number of memo closure runs",
			ConstLabels: config.ConstLabels,
		}),

		invalidations: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "invalidations_total",
			Help:        "Total number of memo invalidations",
			ConstLabels: config.ConstLabels,
		}),

		reactionRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reaction_runs_total",
			Help:        "Total number of reaction runs by mode",
			ConstLabels: config.ConstLabels,
		}, []string{"mode"}),

		reactionDisposals: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reaction_disposals_total",
			Help:        "Total number of disposed reactions",
			ConstLabels: config.ConstLabels,
		}),

		writePropagation: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "write_propagation_seconds",
			Help:        "Time from a changed write until invalidation and reaction replays finish",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		cacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cache_entries",
			Help:        "Number of cached memo results",
			ConstLabels: config.ConstLabels,
		}),

		cacheCapacity: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cache_capacity",
			Help:        "Configured bound of the memo result cache",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Observe implements reactive.Observer.
func (m *Metrics) Observe(e reactive.Event) {
	switch e.Kind {
	case reactive.EventCellRead:
		m.cellReads.Inc()
	case reactive.EventCellWrite:
		m.cellWrites.WithLabelValues(strconv.FormatBool(e.Changed)).Inc()
		if e.Changed {
			m.mu.Lock()
			m.writes = append(m.writes, time.Now())
			m.mu.Unlock()
		}
	case reactive.EventCellWriteDone:
		m.mu.Lock()
		n := len(m.writes)
		if n == 0 {
			m.mu.Unlock()
			return
		}
		start := m.writes[n-1]
		m.writes = m.writes[:n-1]
		m.mu.Unlock()
		m.writePropagation.Observe(time.Since(start).Seconds())
	case reactive.EventCacheHit:
		m.cacheLookups.WithLabelValues("hit").Inc()
	case reactive.EventCacheMiss:
		m.cacheLookups.WithLabelValues("miss").Inc()
	case reactive.EventCacheBypass:
		m.cacheLookups.WithLabelValues("bypass").Inc()
	case reactive.EventCacheEvict:
		m.cacheEvictions.Inc()
	case reactive.EventMemoCompute:
		m.memoComputes.Inc()
	case reactive.EventInvalidate:
		m.invalidations.Inc()
	case reactive.EventReactionRun:
		m.reactionRuns.WithLabelValues(runMode(e.Collecting)).Inc()
	case reactive.EventReactionDispose:
		m.reactionDisposals.Inc()
	}
}

// ObserveStats sets the point-in-time gauges from a Stats snapshot.
func (m *Metrics) ObserveStats(s reactive.Stats) {
	m.cacheEntries.Set(float64(s.CacheEntries))
	m.cacheCapacity.Set(float64(s.CacheCapacity))
}

func runMode(collecting bool) string {
	if collecting {
		return "collecting"
	}
	return "replay"
}
