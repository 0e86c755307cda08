package llm

import (
	"context"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// messagesClient is the subset of the Anthropic SDK used here, so tests
// can substitute a fake without a real API key.
type messagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicClient implements Client on top of the Messages API.
type AnthropicClient struct {
	msg messagesClient
	model string
}

// NewAnthropicClient builds a client from an API key and default model
// identifier (e.g. "claude-sonnet-4-5-20250929").
func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{msg: &ac.Messages, model: model}
}

var _ Client = (*AnthropicClient)(nil)

func (c *AnthropicClient) Complete(ctx context.Context, messages []Message, opts CompleteOptions) (*Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout(opts))
	defer cancel()

	var system []sdk.TextBlockParam
	var conversation []sdk.MessageParam
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, sdk.TextBlockParam{Text: m.Content})
		case RoleUser:
			conversation = append(conversation, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		case RoleAssistant:
			conversation = append(conversation, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		}
	}
	if len(conversation) == 0 {
		return nil, fmt.Errorf("anthropic: at least one user/assistant message is required")
	}

	maxTokens := int64(opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	params := sdk.MessageNewParams{
		Model: sdk.Model(c.model),
		MaxTokens: maxTokens,
		Messages: conversation,
	}
	if len(system) > 0 {
		params.System = system
	}
	if opts.Temperature > 0 {
		params.Temperature = sdk.Float(opts.Temperature)
	}

	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages.new: %w", err)
	}

	var out string
	for _, block := range msg.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	if out == "" {
		return nil, ErrEmptyCompletion
	}
	return &Completion{Content: out}, nil
}
