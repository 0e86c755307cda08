package tools

import (
	"context"
	"strings"

	"github.com/perpctl/tradeagent/pkg/models"
)

// journalListTool lists recent journal entries, optionally filtered to
// one symbol (perp_trade_journal_list; phase 3 prefetch
// candidate for retrospective goals).
func journalListTool() Definition {
	return Definition{
		Name: "perp_trade_journal_list",
		Description: "Lists recent trade journal entries (executed, failed or blocked attempts), optionally filtered to one symbol.",
		Category: "journal",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"symbol": map[string]any{"type": "string"},
				"limit": map[string]any{"type": "integer"},
			},
		},
		SideEffects: false,
		CacheTTLMillis: 2000,
		Execute: func(ctx context.Context, input map[string]any, tc *Context) Result {
			if tc == nil || tc.Journal == nil {
				return Err("no journal store configured")
			}
			limit := intInput(input, "limit", 20)
			if limit <= 0 || limit > 200 {
				limit = 20
			}
			entries, err := tc.Journal.Recent(ctx, limit)
			if err != nil {
				return Err(err.Error())
			}
			symbol := strings.ToUpper(stringInput(input, "symbol", ""))
			out := make([]map[string]any, 0, len(entries))
			for _, e := range entries {
				if symbol != "" && !strings.EqualFold(e.Symbol, symbol) {
					continue
				}
				out = append(out, journalEntryJSON(e))
			}
			return Ok(map[string]any{"entries": out})
		},
	}
}

func journalEntryJSON(e *models.JournalEntry) map[string]any {
	return map[string]any{
		"id": e.ID,
		"created_at": e.CreatedAt,
		"outcome": string(e.Outcome),
		"symbol": e.Symbol,
		"side": e.Side,
		"size_usd": e.SizeUsd,
		"leverage": e.Leverage,
		"reduce_only": e.ReduceOnly,
		"error": e.Error,
	}
}

// tradeReviewTool summarizes recent closed-trade performance for a symbol
// (trade_review; phase 3 prefetch candidate for loss complaints).
func tradeReviewTool() Definition {
	return Definition{
		Name: "trade_review",
		Description: "Summarizes recent closed-trade P&L for a symbol: win rate, average P&L and streak.",
		Category: "journal",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{"symbol": map[string]any{"type": "string"}},
		},
		SideEffects: false,
		CacheTTLMillis: 5000,
		Execute: func(ctx context.Context, input map[string]any, tc *Context) Result {
			if tc == nil || tc.Journal == nil {
				return Err("no journal store configured")
			}
			closes, err := tc.Journal.RecentClosesPnL(ctx, 20)
			if err != nil {
				return Err(err.Error())
			}
			if len(closes) == 0 {
				return Ok(map[string]any{"count": 0, "note": "no closed trades yet"})
			}
			wins, total := 0, 0.0
			for _, pnl := range closes {
				if pnl > 0 {
					wins++
				}
				total += pnl
			}
			streak, streakSign := 0, 0
			for _, pnl := range closes {
				sign := 1
				if pnl < 0 {
					sign = -1
				} else if pnl == 0 {
					break
				}
				if streak == 0 {
					streakSign = sign
				} else if sign != streakSign {
					break
				}
				streak++
			}
			return Ok(map[string]any{
				"count": len(closes),
				"win_rate": float64(wins) / float64(len(closes)),
				"avg_pnl_usd": total / float64(len(closes)),
				"total_pnl_usd": total,
				"current_streak": streak * streakSign,
			})
		},
	}
}
