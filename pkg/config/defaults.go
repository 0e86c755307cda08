package config

import "time"

// DefaultConfig returns the built-in configuration. Load() unmarshals
// the user file on top of this, so any field the user's YAML omits
// keeps its built-in value.
func DefaultConfig() *Config {
	return &Config{
		Modes: map[string]*ModeConfig{
			"trade": {
				Name: "trade", MaxIterations: 12, RequireCritic: true,
				SynthesisTemperature: 0.3,
				AllowedTools: []string{
					"tools.list", "get_portfolio", "get_wallet_info",
					"perp_positions", "perp_market_list",
					"perp_market_get", "perp_analyze", "perp_open_orders",
					"perp_place_order", "perp_cancel_order",
					"perp_trade_journal_list", "trade_review",
					"intel_search", "qmd_query",
				},
			},
			"analysis": {
				Name: "analysis", MaxIterations: 8, RequireCritic: false,
				SynthesisTemperature: 0.5,
				AllowedTools: []string{
					"tools.list", "get_portfolio", "get_wallet_info",
					"perp_market_list", "perp_market_get", "perp_analyze",
					"perp_positions", "perp_open_orders",
					"perp_trade_journal_list", "trade_review",
					"intel_search", "qmd_query",
				},
			},
			"admin": {
				Name: "admin", MaxIterations: 4, RequireCritic: false,
				SynthesisTemperature: 0.2,
				AllowedTools: []string{"tools.list", "get_portfolio", "get_wallet_info"},
			},
		},
		TradeContract: &TradeContractConfig{
			ExitModeAliases: AliasTable{
				"invalidation": "thesis_invalidation",
				"thesis_invalidated": "thesis_invalidation",
				"stop_loss": "thesis_invalidation",
				"tp": "take_profit",
				"takeprofit": "take_profit",
				"time_stop": "time_exit",
				"timeout": "time_exit",
				"liquidity_probe": "risk_reduction",
				"emergency_override": "risk_reduction",
				"liquidity": "risk_reduction",
				"de_risk": "risk_reduction",
				"manual_close": "manual",
			},
			MarketRegimeAliases: AliasTable{
				"trend": "trending",
				"trending_up": "trending",
				"trending_down": "trending",
				"choppy": "choppy",
				"ranging": "choppy",
				"sideways": "choppy",
				"vol_expansion": "high_vol_expansion",
				"high_volatility": "high_vol_expansion",
				"expanding": "high_vol_expansion",
				"vol_compression": "low_vol_compression",
				"low_volatility": "low_vol_compression",
				"quiet": "low_vol_compression",
			},
			EntryTriggerAliases: AliasTable{
				"headline": "news",
				"article": "news",
				"ta": "technical",
				"chart": "technical",
				"imbalance": "technical",
				"orderflow": "technical",
				"breakout": "technical",
				"mixed": "hybrid",
				"combined": "hybrid",
			},
			DefaultSymbol: "BTC",
			MinOrderSize: 0.001,
			BaseSlippageBps: 10,
			SlippageStepBps: 25,
			MaxRetries: 3,
			EnforceEntryValidator: true,
			EnforceExitFSM: true,
			MinHoldByArchetype: map[string]time.Duration{
				"scalp": 3 * time.Minute,
				"intraday": time.Hour,
				"swing": 4 * time.Hour,
			},
		},
		Autonomy: &AutonomyConfig{
			BaseIntervalSeconds: 900,
			MinIntervalSeconds: 120,
			MaxIntervalSeconds: 3600,
			ConcurrentPositionCap: 3,
			PerTradeCapUsd: 500,
			DailyBudgetUsd: 2000,
			MinOrderUsd: 25,
			MinEdge: 0.002,
			MaxKellyFraction: 0.25,
			NewsSizeCapFraction: 0.5,
			LeverageCap: 5,
			HighConfidenceThreshold: 0.65,
			LossStreakThreshold: 3,
			LossStreakPauseSeconds: 3600,
			DailyReportTime: "00:05",
		},
		Scheduler: &SchedulerConfig{
			PollInterval: time.Second,
			LeaseDuration: 30 * time.Second,
		},
		Venue: &VenueConfig{
			BaseURL: "https://api.hyperliquid.xyz",
			RequestsPerSecond: 5,
			Timeout: 10 * time.Second,
			ConfiguredSymbols: []string{"BTC", "ETH", "SOL"},
		},
		LLM: &LLMConfig{
			Provider: "anthropic",
			Model: "claude-sonnet-4-5",
			Timeout: 30 * time.Second,
		},
		Masking: &MaskingConfig{
			Enabled: true,
			Groups: []string{"secrets", "wallet"},
		},
	}
}
