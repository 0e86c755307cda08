package tradecontract

import (
	"fmt"
	"time"

	"github.com/perpctl/tradeagent/pkg/config"
)

// ValidationError reports a single entry/exit-FSM contract violation.
type ValidationError struct {
	Field string
	Msg string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

var validTrailModes = map[string]bool{"atr": true, "structure": true, "none": true}

// ValidateEntry enforces its entry validator when
// cfg.EnforceEntryValidator is set. input is assumed already normalized.
func ValidateEntry(input map[string]any, cfg *config.TradeContractConfig, nowMs int64) error {
	if !cfg.EnforceEntryValidator {
		return nil
	}

	archetype, _ := input["trade_archetype"].(string)
	if archetype == "" {
		return &ValidationError{"trade_archetype", "required"}
	}

	invalidationType, _ := input["invalidation_type"].(string)
	if invalidationType == "" {
		return &ValidationError{"invalidation_type", "required"}
	}
	if isPriceLevelInvalidation(invalidationType) {
		if _, ok := asFloat(input["invalidation_price"]); !ok {
			return &ValidationError{"invalidation_price", "required for price-level invalidation"}
		}
	}

	timeStop, ok := asFloat(input["time_stop_at_ms"])
	if !ok || int64(timeStop) <= nowMs {
		return &ValidationError{"time_stop_at_ms", "must be strictly in the future"}
	}
	minHold := minHoldFor(archetype, cfg)
	if minHold > 0 && int64(timeStop)-nowMs < minHold.Milliseconds() {
		return &ValidationError{"time_stop_at_ms", fmt.Sprintf("must satisfy the %s minimum hold of %s", archetype, minHold)}
	}

	tpR, ok := asFloat(input["take_profit_r"])
	if !ok || tpR < 1 {
		return &ValidationError{"take_profit_r", "must be >= 1"}
	}

	trail, _ := input["trail_mode"].(string)
	if !validTrailModes[trail] {
		return &ValidationError{"trail_mode", "must be one of atr, structure, none"}
	}

	return nil
}

func isPriceLevelInvalidation(invalidationType string) bool {
	switch invalidationType {
	case "price_level", "structure_break", "stop_price":
		return true
	}
	return false
}

// defaultMinHoldByArchetype matches its "scalp >= a few minutes,
// intraday >= 1h, swing >= multi-hour" when config omits an override.
var defaultMinHoldByArchetype = map[string]time.Duration{
	"scalp": 5 * time.Minute,
	"intraday": time.Hour,
	"swing": 4 * time.Hour,
}

func minHoldFor(archetype string, cfg *config.TradeContractConfig) time.Duration {
	if cfg.MinHoldByArchetype != nil {
		if d, ok := cfg.MinHoldByArchetype[archetype]; ok {
			return d
		}
	}
	return defaultMinHoldByArchetype[archetype]
}

// ValidateExitFSM enforces its exit FSM validator when
// cfg.EnforceExitFSM is set. input is assumed already normalized (so
// exit_mode is already canonicalized and reduce_only/thesis_invalidation_hit
// are already bools).
func ValidateExitFSM(input map[string]any, cfg *config.TradeContractConfig) error {
	if !cfg.EnforceExitFSM {
		return nil
	}
	reduceOnly, _ := input["reduce_only"].(bool)
	if !reduceOnly {
		return nil
	}

	exitMode, _ := input["exit_mode"].(string)
	if exitMode == "" {
		exitMode = "manual"
	}
	hit, _ := input["thesis_invalidation_hit"].(bool)

	if exitMode == "manual" || exitMode == "unknown" || exitMode == "" {
		override, _ := input["emergency_override"].(bool)
		reason, _ := input["emergency_reason"].(string)
		if !override || reason == "" {
			return &ValidationError{"exit_mode", "manual/unknown reduce-only exits are blocked"}
		}
		return nil
	}

	switch exitMode {
	case "thesis_invalidation":
		if !hit {
			return &ValidationError{"thesis_invalidation_hit", "must be true when exit_mode is thesis_invalidation"}
		}
	case "take_profit", "time_exit", "risk_reduction":
		if hit {
			return &ValidationError{"thesis_invalidation_hit", fmt.Sprintf("must be false when exit_mode is %s", exitMode)}
		}
	}
	return nil
}
