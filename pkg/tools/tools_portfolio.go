package tools

import "context"

// portfolioTool returns the account's position/margin snapshot
// (get_portfolio, phase 3 default prefetch candidate).
func portfolioTool() Definition {
	return Definition{
		Name: "get_portfolio",
		Description: "Returns the account's current positions, account value and withdrawable balance.",
		Category: "account",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		SideEffects: false,
		CacheTTLMillis: 5000,
		Execute: func(ctx context.Context, _ map[string]any, tc *Context) Result {
			if tc == nil || tc.Market == nil {
				return Err("no market client configured")
			}
			state, err := tc.Market.GetClearinghouseState(ctx)
			if err != nil {
				return Err(err.Error())
			}
			positions := make([]map[string]any, 0, len(state.AssetPositions))
			for _, p := range state.AssetPositions {
				positions = append(positions, map[string]any{
					"coin": p.Coin,
					"size": p.SizeSigned,
					"entry_price": p.EntryPrice,
					"unrealized_pnl": p.UnrealizedPnL,
				})
			}
			return Ok(map[string]any{
				"account_value": state.AccountValue,
				"withdrawable": state.Withdrawable,
				"positions": positions,
			})
		},
	}
}

// walletInfoTool returns account value/withdrawable plus the fee
// schedule (get_wallet_info).
func walletInfoTool() Definition {
	return Definition{
		Name: "get_wallet_info",
		Description: "Returns account value, withdrawable balance and the current maker/taker fee schedule.",
		Category: "account",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		SideEffects: false,
		CacheTTLMillis: 15000,
		Execute: func(ctx context.Context, _ map[string]any, tc *Context) Result {
			if tc == nil || tc.Market == nil {
				return Err("no market client configured")
			}
			state, err := tc.Market.GetClearinghouseState(ctx)
			if err != nil {
				return Err(err.Error())
			}
			out := map[string]any{
				"account_value": state.AccountValue,
				"withdrawable": state.Withdrawable,
			}
			if fees, err := tc.Market.GetUserFees(ctx); err == nil && fees != nil {
				out["taker_fee_rate"] = fees.UserCrossRate
				out["maker_fee_rate"] = fees.UserAddRate
			}
			return Ok(out)
		},
	}
}
