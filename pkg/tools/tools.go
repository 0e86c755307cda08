// Package tools is the tool registry and execution seam: every tool
// exposes (name, description, category, inputSchema, execute(input,
// ctx), sideEffects, requiresConfirmation, cacheTtlMs), and the core
// only ever talks to the registry, never a concrete tool.
package tools

import (
	"context"
	"encoding/json"

	"github.com/perpctl/tradeagent/pkg/config"
	"github.com/perpctl/tradeagent/pkg/llm"
	"github.com/perpctl/tradeagent/pkg/store"
	"github.com/perpctl/tradeagent/pkg/venue"
)

// Result is the only shape execute may return: either a
// success payload or an error string, never both.
type Result struct {
	Success bool `json:"success"`
	Data map[string]any `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Ok builds a successful Result.
func Ok(data map[string]any) Result {
	return Result{Success: true, Data: data}
}

// Err builds a failed Result.
func Err(msg string) Result {
	return Result{Success: false, Error: msg}
}

// Executor carries a placed/cancelled order through the full trade
// contract pipeline (normalize, validate, reduce-only reconciliation,
// retry-with-widening) before it reaches the venue.
// perp_place_order/perp_cancel_order delegate to this instead of calling
// MarketClient directly, keeping the enforcement layer out of the tool
// layer; pkg/tradecontract implements it.
type Executor interface {
	PlaceOrder(ctx context.Context, input map[string]any) Result
	CancelOrder(ctx context.Context, input map[string]any) Result
}

// IntelSearchFunc delegates to the intel/news ingestion pipeline, an
// external collaborator per — the tool layer only knows how to
// call it, not how it's implemented.
type IntelSearchFunc func(ctx context.Context, query string) (string, error)

// Context is what the core exposes to tools:
// config, venue client, executor and limiter are all optional so a tool
// that doesn't need them degrades gracefully when absent.
type Context struct {
	Config *config.Config
	Market venue.MarketClient
	Journal store.Journal
	Incidents store.Incidents
	Playbooks store.Playbooks
	LLMClient llm.Client
	Executor Executor
	Limiter store.SpendingLimiter
	KnowledgeBase *MCPClient
	IntelSearch IntelSearchFunc
	OnConfirmation func(ctx context.Context, toolName string, input map[string]any) (bool, error)

	// CompletedSteps carries the JSON of previously completed plan steps
	// (truncated, see CompletedStep.ResultJSON), used by dynamic input
	// resolution and by tools that read prior results (e.g. trade_review).
	CompletedSteps []CompletedStep
}

// CompletedStep is one entry of the dynamic-resolution context.
type CompletedStep struct {
	StepID string
	ToolName string
	ResultJSON string // truncated to 2000 chars by the caller
}

// Execute is the function signature every tool implements.
type Execute func(ctx context.Context, input map[string]any, tc *Context) Result

// Definition describes one registered tool.
type Definition struct {
	Name string
	Description string
	Category string
	InputSchema map[string]any
	Execute Execute
	SideEffects bool
	RequiresConfirmation bool
	CacheTTLMillis int64
}

// LLMSchema is the shape handed to the planner/LLM to describe a tool —
// name/description/schema only, none of the execution metadata.
type LLMSchema struct {
	Name string `json:"name"`
	Description string `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// CanonicalJSON returns a stable JSON encoding of input for cache keys
// — Go's encoding/json sorts map
// keys when marshaling, which is sufficient canonicalization here.
func CanonicalJSON(input map[string]any) string {
	b, err := json.Marshal(input)
	if err != nil {
		return ""
	}
	return string(b)
}
