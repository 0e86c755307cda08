package tools

import "context"

// intelSearchTool delegates to the intel/news ingestion pipeline, an
// external collaborator injected via IntelSearchFunc; the tool layer
// only knows how to call it.
func intelSearchTool() Definition {
	return Definition{
		Name: "intel_search",
		Description: "Searches recent news/intel for a query string, used for entry triggers and news-gated sizing.",
		Category: "intel",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{"query": map[string]any{"type": "string"}},
			"required": []string{"query"},
		},
		SideEffects: false,
		CacheTTLMillis: 60000,
		Execute: func(ctx context.Context, input map[string]any, tc *Context) Result {
			query := stringInput(input, "query", "")
			if query == "" {
				return Err("query is required")
			}
			if tc == nil || tc.IntelSearch == nil {
				return Err("intel search not configured")
			}
			text, err := tc.IntelSearch(ctx, query)
			if err != nil {
				return Err(err.Error())
			}
			return Ok(map[string]any{"result": text})
		},
	}
}

// qmdQueryTool queries the knowledge-base MCP server for memory-assembly
// snippets.
func qmdQueryTool() Definition {
	return Definition{
		Name: "qmd_query",
		Description: "Queries the knowledge base for snippets relevant to the current goal.",
		Category: "intel",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{"query": map[string]any{"type": "string"}},
			"required": []string{"query"},
		},
		SideEffects: false,
		CacheTTLMillis: 30000,
		Execute: func(ctx context.Context, input map[string]any, tc *Context) Result {
			query := stringInput(input, "query", "")
			if query == "" {
				return Err("query is required")
			}
			if tc == nil || tc.KnowledgeBase == nil {
				return Err("knowledge base not configured")
			}
			text, err := tc.KnowledgeBase.Query(ctx, query)
			if err != nil {
				return Err(err.Error())
			}
			return Ok(map[string]any{"result": text})
		},
	}
}
