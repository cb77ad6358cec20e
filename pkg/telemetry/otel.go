package telemetry

import (
	"context"
	"sync"

	"github.com/vango-dev/reactivecache/pkg/reactive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for reactive engines.
const defaultTracerName = "reactivecache"

// Span names.
const (
	SpanWrite    = "reactive.write"
	SpanReaction = "reactive.reaction"
)

// TracerConfig configures the OpenTelemetry observer.
type TracerConfig struct {
	// TracerName is the name of the tracer (default: "reactivecache").
	TracerName string

	// TracerProvider supplies the tracer.
	// Default: otel.GetTracerProvider()
	TracerProvider trace.TracerProvider

	// RecordReads adds a span event for every cell read.
	// Disabled by default; reads dominate event volume.
	RecordReads bool

	// Root is the parent context for top-level spans.
	// Default: context.Background()
	Root context.Context
}

// TracerOption configures the OpenTelemetry observer.
type TracerOption func(*TracerConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracerOption {
	return func(c *TracerConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TracerOption {
	return func(c *TracerConfig) {
		c.TracerProvider = tp
	}
}

// WithRecordReads enables span events for cell reads.
func WithRecordReads(record bool) TracerOption {
	return func(c *TracerConfig) {
		c.RecordReads = record
	}
}

// WithRootContext sets the parent context for top-level spans.
func WithRootContext(ctx context.Context) TracerOption {
	return func(c *TracerConfig) {
		c.Root = ctx
	}
}

// defaultTracerConfig returns the default OpenTelemetry configuration.
func defaultTracerConfig() TracerConfig {
	return TracerConfig{
		TracerName:  defaultTracerName,
		RecordReads: false,
	}
}

// spanFrame is an open span and the context carrying it.
type spanFrame struct {
	ctx  context.Context
	span trace.Span
}

// Tracer is a reactive.Observer that turns engine activity into spans.
//
// A changed write opens a "reactive.write" span that stays open until its
// propagation finishes; every reaction run opens a "reactive.reaction" span.
// Spans nest the way the engine's calls nest, so a write span contains the
// replays it triggered and a replay contains the writes it made. Cache
// lookups, computations, invalidations and evictions are recorded as span
// events on the innermost open span.
type Tracer struct {
	tracer      trace.Tracer
	root        context.Context
	recordReads bool

	mu    sync.Mutex
	stack []spanFrame
}

var _ reactive.Observer = (*Tracer)(nil)

// NewTracer creates a tracing observer.
//
// Example:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	rt := reactive.NewRuntime(
//	    reactive.WithObserver(telemetry.NewTracer(telemetry.WithTracerProvider(tp))),
//	)
func NewTracer(opts ...TracerOption) *Tracer {
	config := defaultTracerConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.TracerProvider == nil {
		config.TracerProvider = otel.GetTracerProvider()
	}
	if config.Root == nil {
		config.Root = context.Background()
	}

	return &Tracer{
		tracer:      config.TracerProvider.Tracer(config.TracerName),
		root:        config.Root,
		recordReads: config.RecordReads,
	}
}

// Observe implements reactive.Observer.
func (t *Tracer) Observe(e reactive.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e.Kind {
	case reactive.EventCellWrite:
		if !e.Changed {
			t.addEvent("cell_write_unchanged", e)
			return
		}
		t.start(SpanWrite, e)
	case reactive.EventReactionRun:
		t.start(SpanReaction, e, attribute.Bool("reactive.collecting", e.Collecting))
	case reactive.EventCellWriteDone, reactive.EventReactionDone:
		t.end()
	case reactive.EventCellRead:
		if t.recordReads {
			t.addEvent(e.Kind.String(), e)
		}
	default:
		t.addEvent(e.Kind.String(), e)
	}
}

// Depth returns the number of open spans. It is zero between writes.
func (t *Tracer) Depth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.stack)
}

func (t *Tracer) start(name string, e reactive.Event, extra ...attribute.KeyValue) {
	parent := t.root
	if n := len(t.stack); n > 0 {
		parent = t.stack[n-1].ctx
	}

	attrs := append(nodeAttributes(e.Node), extra...)
	ctx, span := t.tracer.Start(parent, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	t.stack = append(t.stack, spanFrame{ctx: ctx, span: span})
}

func (t *Tracer) end() {
	n := len(t.stack)
	if n == 0 {
		return
	}
	top := t.stack[n-1]
	t.stack[n-1] = spanFrame{}
	t.stack = t.stack[:n-1]

	top.span.SetStatus(codes.Ok, "")
	top.span.End()
}

func (t *Tracer) addEvent(name string, e reactive.Event) {
	n := len(t.stack)
	if n == 0 {
		return
	}
	t.stack[n-1].span.AddEvent(name, trace.WithAttributes(nodeAttributes(e.Node)...))
}

func nodeAttributes(ref reactive.NodeRef) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("reactive.node.type", ref.Type.String()),
		attribute.Int64("reactive.node.id", int64(ref.ID)),
	}
	if ref.Label != "" {
		attrs = append(attrs, attribute.String("reactive.node.label", ref.Label))
	}
	return attrs
}
