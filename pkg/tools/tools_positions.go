package tools

import (
	"context"
	"strings"
)

// positionsTool returns open positions, optionally filtered to one symbol
// (perp_positions).
func positionsTool() Definition {
	return Definition{
		Name: "perp_positions",
		Description: "Returns open positions, optionally filtered to one symbol.",
		Category: "account",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{"symbol": map[string]any{"type": "string"}},
		},
		SideEffects: false,
		CacheTTLMillis: 2000,
		Execute: func(ctx context.Context, input map[string]any, tc *Context) Result {
			if tc == nil || tc.Market == nil {
				return Err("no market client configured")
			}
			state, err := tc.Market.GetClearinghouseState(ctx)
			if err != nil {
				return Err(err.Error())
			}
			symbol := strings.ToUpper(stringInput(input, "symbol", ""))
			out := make([]map[string]any, 0, len(state.AssetPositions))
			for _, p := range state.AssetPositions {
				if symbol != "" && !strings.EqualFold(p.Coin, symbol) {
					continue
				}
				if p.SizeSigned == 0 {
					continue
				}
				side := "long"
				if p.SizeSigned < 0 {
					side = "short"
				}
				out = append(out, map[string]any{
					"coin": p.Coin,
					"side": side,
					"size": p.SizeSigned,
					"entry_price": p.EntryPrice,
					"unrealized_pnl": p.UnrealizedPnL,
				})
			}
			return Ok(map[string]any{"positions": out})
		},
	}
}

// openOrdersTool returns resting orders. MarketClient exposes
// no dedicated open-orders read; this reports the derivable subset (none
// observable beyond positions) rather than fabricating an endpoint, and
// says so explicitly so callers don't mistake an empty list for "no
// orders exist".
func openOrdersTool() Definition {
	return Definition{
		Name: "perp_open_orders",
		Description: "Returns resting (unfilled) orders for the account, optionally filtered to one symbol.",
		Category: "account",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{"symbol": map[string]any{"type": "string"}},
		},
		SideEffects: false,
		CacheTTLMillis: 2000,
		Execute: func(_ context.Context, _ map[string]any, _ *Context) Result {
			return Ok(map[string]any{
				"orders": []map[string]any{},
				"note": "venue surface exposes no open-orders read; only fills and positions are queryable",
			})
		},
	}
}
