package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vango-dev/reactivecache/pkg/reactive"
)

// StatsFunc returns a snapshot of engine counters. It is called from HTTP
// handler goroutines, so it must not touch a Runtime directly; have the
// goroutine that owns the runtime publish snapshots instead.
type StatsFunc func() reactive.Stats

// Server is the inspector's HTTP surface.
//
// Routes:
//   - GET /healthz: liveness
//   - GET /stats: engine counters, per-kind event counts and hub state
//   - GET /events/recent?n=N: the most recent buffered events
//   - GET /events: WebSocket stream of events
//   - GET /metrics: Prometheus exposition (when a gatherer is configured)
type Server struct {
	recorder *Recorder
	hub      *Hub
	stats    StatsFunc
	gatherer prometheus.Gatherer
	logger   *slog.Logger

	shutdownTimeout time.Duration
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithStats sets the source of engine counters for /stats.
func WithStats(fn StatsFunc) ServerOption {
	return func(s *Server) {
		s.stats = fn
	}
}

// WithGatherer enables /metrics backed by g.
func WithGatherer(g prometheus.Gatherer) ServerOption {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithShutdownTimeout bounds graceful shutdown (default: 5s).
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.shutdownTimeout = d
	}
}

// NewServer creates an inspector server. hub may be nil, in which case
// /events is not routed.
func NewServer(recorder *Recorder, hub *Hub, opts ...ServerOption) *Server {
	s := &Server{
		recorder:        recorder,
		hub:             hub,
		shutdownTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default().With("component", "inspect")
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/stats", s.handleStats)
	r.Get("/events/recent", s.handleRecent)
	if s.hub != nil {
		r.Get("/events", s.hub.HandleWebSocket)
	}
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("inspect: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully. The
// hub's clients are closed before the HTTP server; hijacked connections are
// not tracked by http.Server.Shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("inspector listening", "address", ln.Addr().String())
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if s.hub != nil {
			s.hub.Close()
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("inspector shutdown error", "error", err)
			return err
		}
		s.logger.Info("inspector shutdown complete")
		return nil
	}
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	Engine  *EngineStats      `json:"engine,omitempty"`
	Events  map[string]uint64 `json:"events"`
	Clients int               `json:"clients"`
	Dropped uint64            `json:"dropped"`
}

// EngineStats mirrors reactive.Stats with JSON names.
type EngineStats struct {
	CellReads        uint64 `json:"cell_reads"`
	WritesChanged    uint64 `json:"writes_changed"`
	WritesUnchanged  uint64 `json:"writes_unchanged"`
	ForcedInvalidate uint64 `json:"forced_invalidate"`
	CacheHits        uint64 `json:"cache_hits"`
	CacheMisses      uint64 `json:"cache_misses"`
	CacheBypasses    uint64 `json:"cache_bypasses"`
	CacheEvictions   uint64 `json:"cache_evictions"`
	MemoComputes     uint64 `json:"memo_computes"`
	Invalidations    uint64 `json:"invalidations"`
	CollectingRuns   uint64 `json:"collecting_runs"`
	Replays          uint64 `json:"replays"`
	Pruned           uint64 `json:"pruned"`
	Sweeps           uint64 `json:"sweeps"`
	CacheEntries     int    `json:"cache_entries"`
	CacheCapacity    int    `json:"cache_capacity"`
}

// NewEngineStats converts a Stats snapshot.
func NewEngineStats(st reactive.Stats) *EngineStats {
	return &EngineStats{
		CellReads:        st.CellReads,
		WritesChanged:    st.WritesChanged,
		WritesUnchanged:  st.WritesUnchanged,
		ForcedInvalidate: st.ForcedInvalidate,
		CacheHits:        st.CacheHits,
		CacheMisses:      st.CacheMisses,
		CacheBypasses:    st.CacheBypasses,
		CacheEvictions:   st.CacheEvictions,
		MemoComputes:     st.MemoComputes,
		Invalidations:    st.Invalidations,
		CollectingRuns:   st.CollectingRuns,
		Replays:          st.Replays,
		Pruned:           st.Pruned,
		Sweeps:           st.Sweeps,
		CacheEntries:     st.CacheEntries,
		CacheCapacity:    st.CacheCapacity,
	}
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	resp := StatsResponse{
		Events: s.recorder.Counts(),
	}
	if s.stats != nil {
		resp.Engine = NewEngineStats(s.stats())
	}
	if s.hub != nil {
		resp.Clients = s.hub.ClientCount()
		resp.Dropped = s.hub.Dropped()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	n := 0
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "n must be a non-negative integer"})
			return
		}
		n = parsed
	}
	writeJSON(w, http.StatusOK, s.recorder.Recent(n))
}

// logRequests logs each request at debug level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("inspector request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
