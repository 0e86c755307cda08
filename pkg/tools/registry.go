package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/perpctl/tradeagent/pkg/telemetry"
)

// Registry is the tool lookup/execution/caching seam: a name-keyed map
// of definitions plus a uniform Execute entrypoint, generalized to this
// repository's execute/cache/confirmation contract instead of an OpenAI
// function-calling tool list.
type Registry struct {
	defs map[string]Definition
	cache resultCache
}

// NewRegistry builds an empty registry backed by an in-process cache.
// Call SetCache to switch to a shared Redis-backed cache.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition), cache: newMemCache()}
}

// SetCache overrides the registry's result cache, e.g. with NewRedisCache.
func (r *Registry) SetCache(c resultCache) {
	r.cache = c
}

// Register adds a tool definition. Names must be unique.
func (r *Registry) Register(d Definition) error {
	if d.Name == "" {
		return fmt.Errorf("tools: definition must have a name")
	}
	if _, exists := r.defs[d.Name]; exists {
		return fmt.Errorf("tools: %s already registered", d.Name)
	}
	if d.Execute == nil {
		return fmt.Errorf("tools: %s has no execute function", d.Name)
	}
	r.defs[d.Name] = d
	return nil
}

// ListNames returns every registered tool name, sorted for determinism.
func (r *Registry) ListNames() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns a tool's definition metadata.
func (r *Registry) Get(name string) (Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// GetLLMSchemas returns the name/description/schema triple for every
// registered tool, the shape handed to the planner.
func (r *Registry) GetLLMSchemas() []LLMSchema {
	out := make([]LLMSchema, 0, len(r.defs))
	for _, name := range r.ListNames() {
		d := r.defs[name]
		out = append(out, LLMSchema{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema})
	}
	return out
}

// ErrUnknownTool is returned by Execute when name isn't registered.
type ErrUnknownTool struct{ Name string }

func (e ErrUnknownTool) Error() string { return fmt.Sprintf("unknown tool %q", e.Name) }

// Execute runs toolName with input under tc, honoring caching and the
// confirmation gate. It never panics on a missing tool or a
// declined confirmation — both come back as a failed Result so the
// orchestrator can fold them into plan-step failure handling uniformly.
func (r *Registry) Execute(ctx context.Context, toolName string, input map[string]any, tc *Context) (Result, bool) {
	d, ok := r.defs[toolName]
	if !ok {
		return Err(ErrUnknownTool{Name: toolName}.Error()), false
	}

	cacheKey := ""
	cacheable := d.CacheTTLMillis > 0 && !d.SideEffects
	if cacheable {
		cacheKey = toolName + "|" + CanonicalJSON(input)
		if cached, hit := r.cache.get(ctx, cacheKey); hit {
			return cached, true
		}
	}

	if d.RequiresConfirmation && tc != nil && tc.OnConfirmation != nil {
		approved, err := tc.OnConfirmation(ctx, toolName, input)
		if err != nil || !approved {
			return Err("User declined"), false
		}
	}

	ctx, span := telemetry.StartToolSpan(ctx, toolName)
	start := time.Now()
	result := d.Execute(ctx, input, tc)
	attrs := []attribute.KeyValue{attribute.String("tool.name", toolName), attribute.Bool("tool.success", result.Success)}
	telemetry.Default.Count(ctx, "tool.executions.total", attrs...)
	telemetry.Default.Observe(ctx, "tool.latency.ms", float64(time.Since(start).Milliseconds()), attrs...)
	var spanErr error
	if !result.Success {
		spanErr = fmt.Errorf("%s", result.Error)
	}
	telemetry.EndSpan(span, spanErr)

	if cacheable && result.Success {
		r.cache.set(ctx, cacheKey, result, time.Duration(d.CacheTTLMillis)*time.Millisecond)
	}
	return result, false
}
