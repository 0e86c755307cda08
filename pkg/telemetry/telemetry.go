// Package telemetry provides span and metric helpers wrapping every LLM
// call, tool execution and scheduler tick, so the rest of the repository
// never imports go.opentelemetry.io directly: a package-level
// tracer/meter pair plus a small cache of lazily created instruments,
// simplified down to the handful of instrument kinds this repository
// actually emits.
package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/perpctl/tradeagent"

var tracer = otel.Tracer(instrumentationName)

// Recorder caches metric instruments by name so callers can record a
// counter or histogram without threading instrument handles through
// every call site.
type Recorder struct {
	meter metric.Meter

	mu sync.RWMutex
	counters map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
}

// NewRecorder builds a Recorder against the global meter provider. With
// no provider configured (the common case for local/dev runs, since this
// module carries no OTLP exporter dependency), the global provider is a
// no-op and every recorded instrument is silently discarded.
func NewRecorder() *Recorder {
	return &Recorder{
		meter: otel.Meter(instrumentationName),
		counters: make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

// Count increments a counter instrument by 1.
func (r *Recorder) Count(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	counter, err := r.counter(name)
	if err != nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// Observe records a value in a histogram instrument, e.g. a call
// duration in milliseconds.
func (r *Recorder) Observe(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) {
	hist, err := r.histogram(name)
	if err != nil {
		return
	}
	hist.Record(ctx, value, metric.WithAttributes(attrs...))
}

func (r *Recorder) counter(name string) (metric.Int64Counter, error) {
	r.mu.RLock()
	c, ok := r.counters[name]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok = r.counters[name]; ok {
		return c, nil
	}
	c, err := r.meter.Int64Counter(name)
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating counter %s: %w", name, err)
	}
	r.counters[name] = c
	return c, nil
}

func (r *Recorder) histogram(name string) (metric.Float64Histogram, error) {
	r.mu.RLock()
	h, ok := r.histograms[name]
	r.mu.RUnlock()
	if ok {
		return h, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok = r.histograms[name]; ok {
		return h, nil
	}
	h, err := r.meter.Float64Histogram(name)
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating histogram %s: %w", name, err)
	}
	r.histograms[name] = h
	return h, nil
}

// Default is the process-wide recorder shared by every package that
// doesn't need an isolated instrument namespace.
var Default = NewRecorder()

// EndSpan records err on span (if any) and ends it. The one-liner every
// call site defers right after starting a span.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
