package autonomy

import (
	"context"
	"fmt"
	"strings"

	"github.com/perpctl/tradeagent/pkg/models"
)

// DailyReport implements its closing paragraph: composed from
// today's journal plus a fresh discovery snapshot, and emitted via the
// notify channel list rather than returned silently, since the whole
// point of the report is that someone reads it.
func (e *Engine) DailyReport(ctx context.Context) (string, error) {
	entries, err := e.Journal.Today(ctx)
	if err != nil {
		return "", fmt.Errorf("loading today's journal: %w", err)
	}

	var executed, blocked, failed int
	var pnlSamples int
	for _, entry := range entries {
		switch entry.Outcome {
		case models.JournalExecuted:
			executed++
		case models.JournalBlocked:
			blocked++
		case models.JournalFailed:
			failed++
		}
		if entry.Outcome == models.JournalExecuted {
			pnlSamples++
		}
	}

	var candidates int
	if snapshot, err := e.discover(ctx); err == nil {
		candidates = len(snapshot)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Daily report: %d journal entries (%d executed, %d blocked, %d failed).\n", len(entries), executed, blocked, failed)
	fmt.Fprintf(&b, "Fresh discovery snapshot: %d candidate expression(s) currently in range.\n", candidates)
	if policy, err := e.Policy.Get(ctx); err == nil && policy.Reason != "" {
		fmt.Fprintf(&b, "Policy note: %s\n", policy.Reason)
	}

	report := b.String()
	e.notify(ctx, "%s", report)
	return report, nil
}
