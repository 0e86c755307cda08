package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient implements Client on top of the Chat Completions API; used
// when pkg/config.LLMConfig.Provider is "openai", or as the target of a
// self-hosted OpenAI-compatible endpoint via BaseURL.
type OpenAIClient struct {
	client openai.Client
	model string
}

// NewOpenAIClient builds a client, optionally pointed at a non-default
// BaseURL (self-hosted/compatible gateways).
func NewOpenAIClient(apiKey, baseURL, model string) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIClient{client: openai.NewClient(opts...), model: model}
}

var _ Client = (*OpenAIClient)(nil)

func (c *OpenAIClient) Complete(ctx context.Context, messages []Message, opts CompleteOptions) (*Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout(opts))
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: convertMessages(messages),
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completions: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, ErrEmptyCompletion
	}
	return &Completion{Content: resp.Choices[0].Message.Content}, nil
}

func convertMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
