package tools

import "context"

// placeOrderTool is the terminal trade-execution tool. It never talks to the venue directly — normalization,
// entry/exit validation, reduce-only reconciliation and retry-with-
// widening all happen in the Executor (pkg/tradecontract) this tool
// delegates to, so the enforcement layer can't be bypassed by adding a
// second call site.
func placeOrderTool() Definition {
	return Definition{
		Name: "perp_place_order",
		Description: "Places a perpetual order (entry or reduce-only exit) after full trade-contract validation.",
		Category: "trade",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"symbol": map[string]any{"type": "string"},
				"side": map[string]any{"type": "string", "enum": []string{"buy", "sell"}},
				"size": map[string]any{"type": "number"},
				"reduce_only": map[string]any{"type": "boolean"},
				"order_type": map[string]any{"type": "string"},
			},
			"required": []string{"symbol", "side"},
		},
		SideEffects: true,
		RequiresConfirmation: true,
		Execute: func(ctx context.Context, input map[string]any, tc *Context) Result {
			if tc == nil || tc.Executor == nil {
				return Err("no trade executor configured")
			}
			return tc.Executor.PlaceOrder(ctx, input)
		},
	}
}

// cancelOrderTool cancels a resting order by client order id
// (perp_cancel_order, the other member of the terminal trade set).
func cancelOrderTool() Definition {
	return Definition{
		Name: "perp_cancel_order",
		Description: "Cancels a resting order by symbol and client order id.",
		Category: "trade",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"symbol": map[string]any{"type": "string"},
				"client_order_id": map[string]any{"type": "string"},
			},
			"required": []string{"symbol", "client_order_id"},
		},
		SideEffects: true,
		RequiresConfirmation: true,
		Execute: func(ctx context.Context, input map[string]any, tc *Context) Result {
			if tc == nil || tc.Executor == nil {
				return Err("no trade executor configured")
			}
			return tc.Executor.CancelOrder(ctx, input)
		},
	}
}
