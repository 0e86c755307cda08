package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, ErrConfigFileMissing)
}

func TestLoad_EnvExpansionAndOverride(t *testing.T) {
	t.Setenv("TEST_LLM_MODEL", "claude-3-7-sonnet-20250219")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
	llm:
	provider: anthropic
	model: "${TEST_LLM_MODEL}"
	timeout: 10s
	autonomy:
	base_interval_seconds: 600
	min_interval_seconds: 120
	max_interval_seconds: 3600
	concurrent_position_cap: 3
	per_trade_cap_usd: 500
	daily_budget_usd: 2000
	min_order_usd: 25
	min_edge: 0.002
	max_kelly_fraction: 0.25
	news_size_cap_fraction: 0.5
	leverage_cap: 5
	high_confidence_threshold: 0.65
	daily_report_time: "00:05"
	`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "claude-3-7-sonnet-20250219", cfg.LLM.Model)
	assert.Equal(t, 600, cfg.Autonomy.BaseIntervalSeconds)
	// Fields omitted from the override file keep the built-in default.
	assert.Equal(t, "BTC", cfg.TradeContract.DefaultSymbol)
}

func TestModeByName_DefaultsToAnalysis(t *testing.T) {
	cfg := DefaultConfig()
	m, ok := cfg.ModeByName("")
	require.True(t, ok)
	assert.Equal(t, "analysis", m.Name)
}
