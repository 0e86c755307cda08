package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"go.opentelemetry.io/otel/attribute"
	noop "go.opentelemetry.io/otel/trace/noop"
)

func TestRecorder_CountAndObserveDoNotPanicAgainstNoopProvider(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()

	assert.NotPanics(t, func() {
		r.Count(ctx, "llm.calls.total", attribute.String("provider", "anthropic"))
		r.Count(ctx, "llm.calls.total", attribute.String("provider", "anthropic"))
		r.Observe(ctx, "llm.latency.ms", 42.5, attribute.String("provider", "anthropic"))
	})
}

func TestRecorder_CachesInstrumentsByName(t *testing.T) {
	r := NewRecorder()

	c1, err := r.counter("reused")
	assert.NoError(t, err)
	c2, err := r.counter("reused")
	assert.NoError(t, err)
	assert.Same(t, c1, c2)
}

func TestEndSpan_RecordsErrorStatus(t *testing.T) {
	tp := noop.NewTracerProvider()
	_, span := tp.Tracer("test").Start(context.Background(), "op")

	assert.NotPanics(t, func() {
		EndSpan(span, assertError{})
	})
}

type assertError struct{}

func (assertError) Error() string { return "boom" }
