package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sdkclient "github.com/mark3labs/mcp-go/client"
	sdkmcp "github.com/mark3labs/mcp-go/mcp"
)

// MCPClient wraps a single MCP server connection used by the optional
// qmd_query tool, narrowed to the one operation this system needs
// (querying a knowledge base) rather than a general multi-server manager.
type MCPClient struct {
	mu sync.RWMutex
	toolName string
	inner sdkclient.MCPClient
}

// NewStdioMCPClient starts an MCP server over stdio and completes the
// initialize handshake. toolName is the server-exposed tool invoked by
// Query (commonly "query" or "search").
func NewStdioMCPClient(ctx context.Context, command string, args []string, env []string, toolName string) (*MCPClient, error) {
	inner, err := sdkclient.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("mcp: start %q: %w", command, err)
	}
	if _, err := inner.Initialize(ctx, sdkmcp.InitializeRequest{
		Params: sdkmcp.InitializeParams{
			ProtocolVersion: sdkmcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: sdkmcp.Implementation{Name: "tradeagent", Version: "0.1.0"},
		},
	}); err != nil {
		_ = inner.Close()
		return nil, fmt.Errorf("mcp: initialize %q: %w", command, err)
	}
	return &MCPClient{toolName: toolName, inner: inner}, nil
}

// Query calls the knowledge-base tool with the given free-text query and
// returns its concatenated text content.
func (c *MCPClient) Query(ctx context.Context, query string) (string, error) {
	c.mu.RLock()
	inner := c.inner
	c.mu.RUnlock()
	if inner == nil {
		return "", fmt.Errorf("mcp: client not connected")
	}

	req := sdkmcp.CallToolRequest{}
	req.Params.Name = c.toolName
	req.Params.Arguments = map[string]any{"query": query}

	result, err := inner.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("mcp: call %q: %w", c.toolName, err)
	}
	var parts []string
	for _, content := range result.Content {
		if tc, ok := content.(sdkmcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	text := strings.Join(parts, "\n")
	if result.IsError {
		return "", fmt.Errorf("mcp: %q returned error: %s", c.toolName, text)
	}
	return text, nil
}

// Close releases the underlying MCP connection.
func (c *MCPClient) Close() error {
	c.mu.Lock()
	inner := c.inner
	c.inner = nil
	c.mu.Unlock()
	if inner == nil {
		return nil
	}
	return inner.Close()
}
