package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/reactivecache/internal/config"
	"github.com/vango-dev/reactivecache/internal/errors"
	"github.com/vango-dev/reactivecache/internal/workload"
	"github.com/vango-dev/reactivecache/pkg/inspect"
	"github.com/vango-dev/reactivecache/pkg/reactive"
	"github.com/vango-dev/reactivecache/pkg/telemetry"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		address string
		trace   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a live workload behind the inspector",
		Long: `Run a workload that writes to its cells on a timer, and serve the
inspector while it runs.

Endpoints:
  GET /healthz          liveness
  GET /stats            engine counters and event counts
  GET /events/recent    the most recent events (?n=N)
  GET /events           WebSocket stream of events
  GET /metrics          Prometheus metrics

Examples:
  reactivecache serve
  reactivecache serve --address=0.0.0.0:7070 --trace --log-level=debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if address != "" {
				cfg.Inspect.Address = address
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			printBanner(out)
			return runServe(ctx, cfg, logger, serveOptions{
				trace: trace,
				onListen: func(addr net.Addr) {
					success(out, "Inspector on http://%s", addr)
					info(out, "Press Ctrl+C to stop")
				},
			})
		},
	}

	cmd.Flags().StringVarP(&address, "address", "a", "", "Listen address (default from config)")
	cmd.Flags().BoolVar(&trace, "trace", false, "Log OpenTelemetry spans for writes and reaction runs")

	return cmd
}

type serveOptions struct {
	trace    bool
	onListen func(net.Addr)
}

// runServe runs the inspector and the workload driver until ctx is done.
// The driver goroutine owns the Runtime; HTTP handlers see engine counters
// only through the snapshot it publishes after every step.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts serveOptions) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := telemetry.NewMetrics(telemetry.WithRegistry(reg))

	hub := inspect.NewHub(cfg.Inspect.BufferSize, logger.With("component", "inspect"))
	recorder := inspect.NewRecorder(cfg.Inspect.BufferSize, hub)

	rtOpts := []reactive.Option{
		reactive.WithCacheCapacity(cfg.Cache.Capacity),
		reactive.WithLogger(logger.With("component", "reactive")),
		reactive.WithObserver(recorder),
		reactive.WithObserver(metrics),
	}
	if opts.trace {
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(newLogExporter(logger)))
		defer tp.Shutdown(context.Background())
		rtOpts = append(rtOpts, reactive.WithObserver(telemetry.NewTracer(telemetry.WithTracerProvider(tp))))
	}

	var snapshot atomic.Pointer[reactive.Stats]
	srv := inspect.NewServer(recorder, hub,
		inspect.WithStats(func() reactive.Stats {
			if st := snapshot.Load(); st != nil {
				return *st
			}
			return reactive.Stats{CacheCapacity: cfg.Cache.Capacity}
		}),
		inspect.WithGatherer(reg),
		inspect.WithLogger(logger.With("component", "inspect")),
	)

	ln, err := net.Listen("tcp", cfg.Inspect.Address)
	if err != nil {
		return errors.New("E300").
			WithDetail(fmt.Sprintf("Could not listen on %s.", cfg.Inspect.Address)).
			WithSuggestion("Pick another address with --address or inspect.address").
			Wrap(err)
	}
	if opts.onListen != nil {
		opts.onListen(ln.Addr())
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		if err := srv.Serve(gctx, ln); err != nil {
			return errors.New("E301").Wrap(err)
		}
		return nil
	})

	g.Go(func() error {
		return drive(gctx, rtOpts, cfg, logger, func(st reactive.Stats) {
			snapshot.Store(&st)
			metrics.ObserveStats(st)
		})
	})

	return g.Wait()
}

// drive builds the Runtime and steps a workload.Driver on every tick.
func drive(ctx context.Context, rtOpts []reactive.Option, cfg *config.Config, logger *slog.Logger, publish func(reactive.Stats)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			ierr, ok := r.(*reactive.InvariantError)
			if !ok {
				panic(r)
			}
			err = errors.New("E202").Wrap(ierr)
		}
	}()

	rt := reactive.NewRuntime(rtOpts...)
	d := workload.NewDriver(rt, cfg.Bench.FanOut)
	defer d.Close()
	publish(rt.Stats())

	ticker := time.NewTicker(cfg.Inspect.DriveInterval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("driver stopped", "steps", d.Steps(), "reaction_runs", d.Runs())
			return nil
		case <-ticker.C:
			total := d.Step()
			logger.Debug("driver step", "step", d.Steps(), "total", total)
			publish(rt.Stats())
		}
	}
}

// logExporter writes finished spans to a slog logger at debug level.
type logExporter struct {
	logger *slog.Logger
}

func newLogExporter(logger *slog.Logger) *logExporter {
	return &logExporter{logger: logger.With("component", "trace")}
}

func (e *logExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		attrs := []any{
			"trace_id", span.SpanContext().TraceID().String(),
			"duration", span.EndTime().Sub(span.StartTime()),
			"events", len(span.Events()),
		}
		for _, kv := range span.Attributes() {
			attrs = append(attrs, string(kv.Key), kv.Value.Emit())
		}
		e.logger.DebugContext(ctx, span.Name(), attrs...)
	}
	return nil
}

func (e *logExporter) Shutdown(context.Context) error {
	return nil
}
