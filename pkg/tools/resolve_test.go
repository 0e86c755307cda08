package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/perpctl/tradeagent/pkg/llm"
)

func TestHasPlaceholder(t *testing.T) {
	assert.True(t, HasPlaceholder(map[string]any{"symbol": "to_be_determined"}))
	assert.True(t, HasPlaceholder(map[string]any{"size": "TBD"}))
	assert.True(t, HasPlaceholder(map[string]any{"price": "{...step...}"}))
	assert.False(t, HasPlaceholder(map[string]any{"symbol": "BTC", "size": 1.0}))
}

func TestApplyDefaultSymbol(t *testing.T) {
	out := ApplyDefaultSymbol("perp_market_get", map[string]any{}, "ETH")
	assert.Equal(t, "ETH", out["symbol"])

	out2 := ApplyDefaultSymbol("perp_market_get", map[string]any{}, "")
	assert.Equal(t, "BTC", out2["symbol"])

	out3 := ApplyDefaultSymbol("perp_market_get", map[string]any{"symbol": "SOL"}, "ETH")
	assert.Equal(t, "SOL", out3["symbol"])

	out4 := ApplyDefaultSymbol("get_portfolio", map[string]any{}, "ETH")
	_, has := out4["symbol"]
	assert.False(t, has)
}

func TestResolveDynamicInput_ParsesJSONReply(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{"```json\n{\"symbol\": \"BTC\", \"size\": 0.5}\n```"}}
	out := ResolveDynamicInput(context.Background(), fake, "perp_place_order",
		map[string]any{"symbol": "to_be_determined"}, nil, nil)
	assert.Equal(t, "BTC", out["symbol"])
	assert.Equal(t, 0.5, out["size"])
}

func TestResolveDynamicInput_FallsBackOnParseFailure(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{"not json at all"}}
	input := map[string]any{"symbol": "to_be_determined"}
	out := ResolveDynamicInput(context.Background(), fake, "perp_place_order", input, nil, nil)
	assert.Equal(t, input["symbol"], out["symbol"])
}

func TestResolveDynamicInput_NilClientReturnsInputUnchanged(t *testing.T) {
	input := map[string]any{"symbol": "TBD"}
	out := ResolveDynamicInput(context.Background(), nil, "perp_place_order", input, nil, nil)
	assert.Equal(t, input, out)
}
