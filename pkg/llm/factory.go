package llm

import (
	"fmt"

	"github.com/perpctl/tradeagent/pkg/config"
)

// New selects and constructs the configured backend; cmd/tradeagent calls this once at startup.
func New(cfg *config.LLMConfig) (Client, error) {
	client, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}
	return Traced(client, cfg.Provider, cfg.Model), nil
}

func newBackend(cfg *config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("llm: anthropic provider requires an api key")
		}
		return NewAnthropicClient(cfg.APIKey, cfg.Model), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("llm: openai provider requires an api key")
		}
		return NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case "openai-compatible":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("llm: openai-compatible provider requires a base url")
		}
		return NewCompatibleClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.MaxRetries), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
