package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StartLLMSpan begins a span around one llm.Client.Complete call, tagged
// with the provider and model so a trace backend can break down latency
// and error rate per backend.
func StartLLMSpan(ctx context.Context, provider, model string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "llm.complete",
		trace.WithAttributes(
			attribute.String("llm.provider", provider),
			attribute.String("llm.model", model),
		),
	)
}

// StartToolSpan begins a span around one tools.Registry.Execute call.
func StartToolSpan(ctx context.Context, toolName string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "tool.execute",
		trace.WithAttributes(attribute.String("tool.name", toolName)),
	)
}

// StartSchedulerSpan begins a span around one scheduler job run.
func StartSchedulerSpan(ctx context.Context, jobName string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "scheduler.run",
		trace.WithAttributes(attribute.String("scheduler.job", jobName)),
	)
}
