package tradecontract

import (
	"math"
	"strconv"
	"strings"

	"github.com/perpctl/tradeagent/pkg/config"
)

// defaultExitModeAliases covers the canonical exit modes this system
// recognizes; config.TradeContractConfig.ExitModeAliases may add to or
// override it.
var defaultExitModeAliases = config.AliasTable{
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
}

var defaultMarketRegimeAliases = config.AliasTable{
	"trend": "trending",
	"trendy": "trending",
	"chop": "choppy",
	"ranging": "choppy",
	"expansion": "high_vol_expansion",
	"vol_expand": "high_vol_expansion",
	"compression": "low_vol_compression",
	"quiet": "low_vol_compression",
	"low_vol": "low_vol_compression",
}

var defaultEntryTriggerAliases = config.AliasTable{
	"imbalance": "technical",
	"orderflow": "technical",
	"breakout": "technical",
	"headline": "news",
	"catalyst": "news",
	"mixed": "hybrid",
}

// canonicalize resolves value through cfgTable then the built-in default,
// lowercased and trimmed first. An unmapped value passes through
// unchanged (lowercased/trimmed) so callers can still validate it.
func canonicalize(value string, cfgTable, defaultTable config.AliasTable) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return v
	}
	if canon, ok := cfgTable[v]; ok {
		return canon
	}
	if canon, ok := defaultTable[v]; ok {
		return canon
	}
	return v
}

func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, false
		}
		return b, true
	}
	return false, false
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Normalize applies its normalization rules in entry order and
// returns a new map — the original input is never mutated. Normalizing
// an already-normalized input is a no-op (fixed point), since every rule
// below re-derives its canonical form from whatever is already present
// rather than toggling state.
func Normalize(input map[string]any, cfg *config.TradeContractConfig) map[string]any {
	out := make(map[string]any, len(input)+2)
	for k, v := range input {
		out[k] = v
	}

	if v, ok := out["exit_mode"].(string); ok {
		out["exit_mode"] = canonicalize(v, cfg.ExitModeAliases, defaultExitModeAliases)
	}
	if v, ok := out["market_regime"].(string); ok {
		out["market_regime"] = canonicalize(v, cfg.MarketRegimeAliases, defaultMarketRegimeAliases)
	}
	if v, ok := out["entry_trigger"].(string); ok {
		out["entry_trigger"] = canonicalize(v, cfg.EntryTriggerAliases, defaultEntryTriggerAliases)
	}

	reduceOnly, _ := asBool(out["reduce_only"])
	if _, has := out["trade_archetype"]; !has && !reduceOnly {
		out["trade_archetype"] = "intraday"
	} else if v, ok := out["trade_archetype"].(string); ok {
		out["trade_archetype"] = strings.ToLower(strings.TrimSpace(v))
	}

	size, ok := asFloat(out["size"])
	minSize := cfg.MinOrderSize
	if minSize <= 0 {
		minSize = 0.001
	}
	if !ok || size <= 0 || isNonFinite(size) {
		out["size"] = minSize
	} else {
		out["size"] = size
	}

	out["order_type"] = "market"
	delete(out, "price")

	side := "buy"
	if v, ok := out["side"].(string); ok {
		lv := strings.ToLower(strings.TrimSpace(v))
		if lv == "buy" || lv == "sell" {
			side = lv
		}
	}
	out["side"] = side

	if b, ok := asBool(out["reduce_only"]); ok {
		out["reduce_only"] = b
		if b && out["exit_mode"] == "thesis_invalidation" {
			out["thesis_invalidation_hit"] = true
		}
	}
	if b, ok := asBool(out["thesis_invalidation_hit"]); ok {
		out["thesis_invalidation_hit"] = b
	}
	if b, ok := asBool(out["emergency_override"]); ok {
		out["emergency_override"] = b
	}

	return out
}

func isNonFinite(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}
