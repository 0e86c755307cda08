package llm

import (
	"testing"

	"github.com/perpctl/tradeagent/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(&config.LLMConfig{Provider: "does-not-exist"})
	require.Error(t, err)
}

func TestNew_AnthropicRequiresAPIKey(t *testing.T) {
	_, err := New(&config.LLMConfig{Provider: "anthropic", Model: "claude-3-7-sonnet-20250219"})
	require.Error(t, err)
}

func TestNew_AnthropicBuilds(t *testing.T) {
	c, err := New(&config.LLMConfig{Provider: "anthropic", Model: "claude-3-7-sonnet-20250219", APIKey: "sk-ant-test"})
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestFakeClient_ScriptsResponsesInOrder(t *testing.T) {
	f := &FakeClient{Responses: []string{"first", "second"}}
	c1, err := f.Complete(nil, []Message{{Role: RoleUser, Content: "hi"}}, CompleteOptions{})
	require.NoError(t, err)
	assert.Equal(t, "first", c1.Content)

	c2, err := f.Complete(nil, nil, CompleteOptions{})
	require.NoError(t, err)
	assert.Equal(t, "second", c2.Content)
	assert.Len(t, f.Requests, 2)
}
