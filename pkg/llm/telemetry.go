package llm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/perpctl/tradeagent/pkg/telemetry"
)

// tracedClient wraps a Client with a span and a pair of metrics around
// every Complete call, so the provider-specific backends in this package
// stay free of telemetry concerns.
type tracedClient struct {
	inner Client
	provider string
	model string
}

// Traced wraps client so every completion call emits an
// "llm.complete" span plus llm.calls.total / llm.latency.ms metrics,
// tagged by provider and model. New wraps every backend it constructs.
func Traced(client Client, provider, model string) Client {
	return &tracedClient{inner: client, provider: provider, model: model}
}

func (c *tracedClient) Complete(ctx context.Context, messages []Message, opts CompleteOptions) (*Completion, error) {
	ctx, span := telemetry.StartLLMSpan(ctx, c.provider, c.model)
	start := time.Now()

	completion, err := c.inner.Complete(ctx, messages, opts)

	attrs := []attribute.KeyValue{
		attribute.String("provider", c.provider),
		attribute.String("model", c.model),
	}
	telemetry.Default.Count(ctx, "llm.calls.total", attrs...)
	telemetry.Default.Observe(ctx, "llm.latency.ms", float64(time.Since(start).Milliseconds()), attrs...)
	telemetry.EndSpan(span, err)

	return completion, err
}
