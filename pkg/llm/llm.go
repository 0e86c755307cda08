// Package llm provides the single LLM seam the rest of this repository
// depends on: complete(messages, opts) → {content}. Planner, Reflector,
// Critic and the orchestrator's synthesis step all call through this
// interface; none of them import a provider SDK directly.
package llm

import (
	"context"
	"errors"
	"time"
)

// Role is the speaker of one message in a completion request.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation sent to the model.
type Message struct {
	Role Role
	Content string
}

// CompleteOptions configures a single completion call.
type CompleteOptions struct {
	Temperature float64
	MaxTokens int
	Timeout time.Duration
}

// Completion is the model's reply.
type Completion struct {
	Content string
}

// ErrEmptyCompletion is returned when a provider responds with no usable
// text content, treated by callers the same as a parse failure.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// Client is the interface every package in this repository programs
// against; pkg/llm/anthropic and pkg/llm/openai provide concrete
// backends, selected at startup by pkg/config.LLMConfig.Provider.
type Client interface {
	Complete(ctx context.Context, messages []Message, opts CompleteOptions) (*Completion, error)
}

func defaultTimeout(opts CompleteOptions) time.Duration {
	if opts.Timeout > 0 {
		return opts.Timeout
	}
	return 30 * time.Second
}
