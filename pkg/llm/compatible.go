package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openailib "github.com/sashabaranov/go-openai"
)

// CompatibleClient implements Client against any OpenAI-compatible chat
// completions endpoint (self-hosted gateways, alternate providers) using
// github.com/sashabaranov/go-openai rather than the official openai-go
// SDK, and retries transient failures with linear backoff.
type CompatibleClient struct {
	client *openailib.Client
	model string
	maxRetries int
}

// NewCompatibleClient points at baseURL (required: compatible endpoints
// have no sensible default) with up to maxRetries extra attempts on
// failure.
func NewCompatibleClient(apiKey, baseURL, model string, maxRetries int) *CompatibleClient {
	cfg := openailib.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &CompatibleClient{
		client: openailib.NewClientWithConfig(cfg),
		model: model,
		maxRetries: maxRetries,
	}
}

var _ Client = (*CompatibleClient)(nil)

func (c *CompatibleClient) Complete(ctx context.Context, messages []Message, opts CompleteOptions) (*Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout(opts))
	defer cancel()

	req := openailib.ChatCompletionRequest{
		Model: c.model,
		Messages: toCompatibleMessages(messages),
		Temperature: float32(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}

	var resp openailib.ChatCompletionResponse
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, lastErr = c.client.CreateChatCompletion(ctx, req)
		if lastErr == nil {
			break
		}
		if attempt == c.maxRetries {
			break
		}
		select {
		case <-time.After(time.Duration(attempt+1) * time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("openai-compatible chat completion after %d attempts: %w", c.maxRetries+1, lastErr)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, errors.Join(ErrEmptyCompletion, fmt.Errorf("model %q returned no content", c.model))
	}
	return &Completion{Content: resp.Choices[0].Message.Content}, nil
}

func toCompatibleMessages(messages []Message) []openailib.ChatCompletionMessage {
	out := make([]openailib.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openailib.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}
