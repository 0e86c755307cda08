package tools

import "context"

// toolsListTool reports the registry's own contents — used by the
// orchestrator's redundant-call skip rule.
func toolsListTool(r *Registry) Definition {
	return Definition{
		Name: "tools.list",
		Description: "Lists every tool available in this run, with category and side-effect metadata.",
		Category: "meta",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		SideEffects: false,
		CacheTTLMillis: 60000,
		Execute: func(_ context.Context, _ map[string]any, _ *Context) Result {
			out := make([]map[string]any, 0, len(r.defs))
			for _, name := range r.ListNames() {
				d := r.defs[name]
				out = append(out, map[string]any{
					"name": d.Name,
					"description": d.Description,
					"category": d.Category,
					"side_effects": d.SideEffects,
					"requires_confirmation": d.RequiresConfirmation,
				})
			}
			return Ok(map[string]any{"tools": out})
		},
	}
}

// RegisterDefaults registers every built-in tool onto r. The
// executor/venue/journal/etc. dependencies themselves are supplied
// per-call via Context, not at registration time — registration only
// wires the name→implementation mapping.
func RegisterDefaults(r *Registry) error {
	defs := []Definition{
		portfolioTool(),
		walletInfoTool(),
		marketListTool(),
		marketGetTool(),
		analyzeTool(),
		positionsTool(),
		openOrdersTool(),
		placeOrderTool(),
		cancelOrderTool(),
		journalListTool(),
		tradeReviewTool(),
		intelSearchTool(),
		qmdQueryTool(),
	}
	for _, d := range defs {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return r.Register(toolsListTool(r))
}
