package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/perpctl/tradeagent/pkg/models"
	"github.com/perpctl/tradeagent/pkg/tools"
	"github.com/perpctl/tradeagent/pkg/tradecontract"
)

const (
	maxIncidents = 6
	incidentChars = 180
	maxPlaybooks = 4
	playbookChars = 900
)

// AssembleMemory implements phase 2: session memory, knowledge-
// base snippets, recent incidents and matching playbooks, concatenated in
// that order with empty sections omitted. Any per-section failure is
// folded into warnings and never aborts assembly.
func (o *Orchestrator) AssembleMemory(ctx context.Context, goal, sessionMemory string, warn func(string)) string {
	var sections []string

	if strings.TrimSpace(sessionMemory) != "" {
		sections = append(sections, "Session memory:\n"+strings.TrimSpace(sessionMemory))
	}

	if o.KnowledgeBase != nil {
		snippet, err := o.KnowledgeBase.Query(ctx, goal)
		if err != nil {
			warn(fmt.Sprintf("knowledge base query failed: %v", err))
		} else if strings.TrimSpace(snippet) != "" {
			sections = append(sections, "Knowledge base:\n"+snippet)
		}
	}

	if o.Incidents != nil {
		if section, err := o.recentIncidentsSection(ctx); err != nil {
			warn(fmt.Sprintf("incident lookup failed: %v", err))
		} else if section != "" {
			sections = append(sections, section)
		}
	}

	if o.Playbooks != nil {
		if section, err := o.matchingPlaybooksSection(ctx, goal); err != nil {
			warn(fmt.Sprintf("playbook lookup failed: %v", err))
		} else if section != "" {
			sections = append(sections, section)
		}
	}

	return strings.Join(sections, "\n\n")
}

func (o *Orchestrator) recentIncidentsSection(ctx context.Context) (string, error) {
	top, err := o.Incidents.Top(ctx, maxIncidents)
	if err != nil {
		return "", err
	}
	if len(top) == 0 {
		return "", nil
	}
	var b strings.Builder
	b.WriteString("Recent incidents:")
	for _, inc := range top {
		detail := inc.Detail
		if len(detail) > incidentChars {
			detail = detail[:incidentChars]
		}
		fmt.Fprintf(&b, "\n- [%s/%s] %s", inc.ToolName, inc.BlockerKind, detail)
	}
	return b.String(), nil
}

func (o *Orchestrator) matchingPlaybooksSection(ctx context.Context, goal string) (string, error) {
	matches, err := o.Playbooks.MatchingTop(ctx, goal, maxPlaybooks)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", nil
	}
	var b strings.Builder
	b.WriteString("Relevant playbooks:")
	for _, pb := range matches {
		content := pb.Content
		if len(content) > playbookChars {
			content = content[:playbookChars]
		}
		fmt.Fprintf(&b, "\n- %s: %s", pb.Title, content)
	}
	return b.String(), nil
}

// ConditionalPrefetch implements phase 3: in trade mode, a
// retrospective or loss-complaint goal prefetches the journal list and
// trade review for a symbol inferred from the goal, appending their
// output to memory. Failures become warnings, never fatal.
func (o *Orchestrator) ConditionalPrefetch(ctx context.Context, state *models.AgentState, goal string, tc *tools.Context) string {
	if state.Mode != models.ModeTrade {
		return ""
	}
	intent := classifyPrefetchIntent(goal)
	if intent == "" {
		return ""
	}

	symbol := inferSymbol(goal, o.Config.Venue.ConfiguredSymbols)
	var sections []string

	if _, ok := o.Registry.Get("perp_trade_journal_list"); ok {
		input := map[string]any{}
		if symbol != "" {
			input["symbol"] = symbol
		}
		res, _ := o.Registry.Execute(ctx, "perp_trade_journal_list", input, tc)
		if res.Success {
			sections = append(sections, fmt.Sprintf("Recent trade journal (prefetched for %s goal): %v", intent, res.Data))
		} else {
			state.RecordWarning(fmt.Sprintf("journal prefetch failed: %s", res.Error))
		}
	}

	if _, ok := o.Registry.Get("trade_review"); ok {
		res, _ := o.Registry.Execute(ctx, "trade_review", map[string]any{}, tc)
		if res.Success {
			sections = append(sections, fmt.Sprintf("Trade review (prefetched): %v", res.Data))
		} else {
			state.RecordWarning(fmt.Sprintf("trade review prefetch failed: %s", res.Error))
		}
	}

	return strings.Join(sections, "\n\n")
}

func classifyPrefetchIntent(goal string) string {
	switch tradecontract.Classify(goal) {
	case tradecontract.IntentRetrospective:
		return "retrospective"
	case tradecontract.IntentLossComplaint:
		return "loss_complaint"
	default:
		return ""
	}
}
