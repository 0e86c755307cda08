// Package config loads and validates the trading agent's configuration:
// modes, the trade contract, autonomy policy defaults, the scheduler and
// the venue/LLM connection settings, via a YAML-plus-env-expansion loader
// (loader.go, envexpand.go, validator.go).
package config

import "time"

// ModeConfig is a named policy bundle selecting allowed tools, iteration
// budget, critic requirement and synthesis temperature.
type ModeConfig struct {
	Name string `yaml:"name" validate:"required"`
	AllowedTools []string `yaml:"allowed_tools" validate:"required,min=1"`
	MaxIterations int `yaml:"max_iterations" validate:"required,min=1"`
	RequireCritic bool `yaml:"require_critic"`
	SynthesisTemperature float64 `yaml:"synthesis_temperature" validate:"min=0,max=2"`
}

// AliasTable canonicalizes one enum-like field. Keys are lowercase aliases,
// values are the canonical token.
type AliasTable map[string]string

// TradeContractConfig configures the normalizer, terminal-contract
// injection, remediation table and the entry/exit FSM validators.
type TradeContractConfig struct {
	ExitModeAliases AliasTable `yaml:"exit_mode_aliases"`
	MarketRegimeAliases AliasTable `yaml:"market_regime_aliases"`
	EntryTriggerAliases AliasTable `yaml:"entry_trigger_aliases"`
	DefaultSymbol string `yaml:"default_symbol" validate:"required"`
	MinOrderSize float64 `yaml:"min_order_size" validate:"required,gt=0"`
	BaseSlippageBps int `yaml:"base_slippage_bps" validate:"required,gt=0"`
	SlippageStepBps int `yaml:"slippage_step_bps" validate:"required,gt=0"`
	MaxRetries int `yaml:"max_retries" validate:"required,gt=0"`
	EnforceEntryValidator bool `yaml:"enforce_entry_validator"`
	EnforceExitFSM bool `yaml:"enforce_exit_fsm"`
	MinHoldByArchetype map[string]time.Duration `yaml:"min_hold_by_archetype"`
}

// AutonomyConfig configures the scan cadence, gates and sizing caps of
// the autonomous loop.
type AutonomyConfig struct {
	BaseIntervalSeconds int `yaml:"base_interval_seconds" validate:"required,gt=0"`
	MinIntervalSeconds int `yaml:"min_interval_seconds" validate:"required,gt=0"`
	MaxIntervalSeconds int `yaml:"max_interval_seconds" validate:"required,gt=0"`
	ConcurrentPositionCap int `yaml:"concurrent_position_cap" validate:"required,gt=0"`
	PerTradeCapUsd float64 `yaml:"per_trade_cap_usd" validate:"required,gt=0"`
	DailyBudgetUsd float64 `yaml:"daily_budget_usd" validate:"required,gt=0"`
	MinOrderUsd float64 `yaml:"min_order_usd" validate:"required,gt=0"`
	MinEdge float64 `yaml:"min_edge" validate:"required,gt=0"`
	MaxKellyFraction float64 `yaml:"max_kelly_fraction" validate:"required,gt=0,lte=1"`
	NewsSizeCapFraction float64 `yaml:"news_size_cap_fraction" validate:"required,gt=0,lte=1"`
	LeverageCap float64 `yaml:"leverage_cap" validate:"required,gt=0"`
	HighConfidenceThreshold float64 `yaml:"high_confidence_threshold" validate:"required,gt=0,lte=1"`
	LossStreakThreshold int `yaml:"loss_streak_threshold" validate:"omitempty,gt=0"`
	LossStreakPauseSeconds int `yaml:"loss_streak_pause_seconds" validate:"omitempty,gt=0"`
	DailyReportTime string `yaml:"daily_report_time" validate:"required"` // "HH:MM" UTC
	ChatChannels []string `yaml:"chat_channels"`
}

// SchedulerConfig configures the leased job control plane.
type SchedulerConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" validate:"required"`
	LeaseDuration time.Duration `yaml:"lease_duration" validate:"required"`
}

// VenueConfig configures the perp venue client.
type VenueConfig struct {
	BaseURL string `yaml:"base_url" validate:"required,url"`
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"required,gt=0"`
	Timeout time.Duration `yaml:"timeout" validate:"required"`
	ConfiguredSymbols []string `yaml:"configured_symbols"`
}

// LLMConfig selects and configures the LLM backend.
type LLMConfig struct {
	Provider string `yaml:"provider" validate:"required,oneof=anthropic openai openai-compatible"`
	Model string `yaml:"model" validate:"required"`
	APIKey string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	MaxRetries int `yaml:"max_retries"`
	Timeout time.Duration `yaml:"timeout" validate:"required"`
}

// MaskingConfig selects which built-in masking pattern groups are applied
// to tool input/output before it is journaled, generalized from
// MCP-result/alert-payload masking.
type MaskingConfig struct {
	Enabled bool `yaml:"enabled"`
	Groups []string `yaml:"groups"`
}

// Config is the fully resolved, validated configuration tree.
type Config struct {
	Modes map[string]*ModeConfig `yaml:"modes" validate:"required,min=1,dive"`
	TradeContract *TradeContractConfig `yaml:"trade_contract" validate:"required"`
	Autonomy *AutonomyConfig `yaml:"autonomy" validate:"required"`
	Scheduler *SchedulerConfig `yaml:"scheduler" validate:"required"`
	Venue *VenueConfig `yaml:"venue" validate:"required"`
	LLM *LLMConfig `yaml:"llm" validate:"required"`
	Masking *MaskingConfig `yaml:"masking" validate:"required"`
}

// ModeByName resolves a mode, falling back to "analysis" when unset.
func (c *Config) ModeByName(name string) (*ModeConfig, bool) {
	if name == "" {
		name = string(ModeAnalysisDefault)
	}
	m, ok := c.Modes[name]
	return m, ok
}

// ModeAnalysisDefault is the fallback mode name.
const ModeAnalysisDefault = "analysis"
