package tradecontract

import (
	"context"
	"fmt"

	"github.com/perpctl/tradeagent/pkg/venue"
)

// reconcileReduceOnly implements its reduce-only reconciliation.
// input must already be normalized. Returns the (possibly size-capped)
// input, or an error describing why the order must be rejected.
func (e *Enforcer) reconcileReduceOnly(ctx context.Context, input map[string]any) (map[string]any, error) {
	reduceOnly, _ := input["reduce_only"].(bool)
	if !reduceOnly {
		return input, nil
	}

	symbol, _ := input["symbol"].(string)
	side, _ := input["side"].(string)
	size, _ := asFloat(input["size"])

	state, err := e.market.GetClearinghouseState(ctx)
	if err != nil {
		return nil, fmt.Errorf("reduce-only reconciliation: fetch position: %w", err)
	}

	var live *venue.Position
	for i := range state.AssetPositions {
		if state.AssetPositions[i].Coin == symbol {
			live = &state.AssetPositions[i]
			break
		}
	}
	if live == nil || live.SizeSigned == 0 {
		return nil, fmt.Errorf("reduce-only reconciliation: no open position on %s to reduce", symbol)
	}

	isLong := live.SizeSigned > 0
	increasesPosition := (isLong && side == "buy") || (!isLong && side == "sell")
	if increasesPosition {
		return nil, fmt.Errorf("reduce-only reconciliation: side %q would increase the position on %s", side, symbol)
	}

	liveSize := live.SizeSigned
	if liveSize < 0 {
		liveSize = -liveSize
	}
	if size > liveSize {
		input["size"] = liveSize
	}

	if e.cfg.EnforceExitFSM {
		if em, _ := input["exit_mode"].(string); em == "" {
			input["exit_mode"] = "manual"
		}
		if err := ValidateExitFSM(input, e.cfg); err != nil {
			return nil, fmt.Errorf("reduce-only reconciliation: %w", err)
		}
	}

	return input, nil
}
