package tradecontract

import "regexp"

// Intent classifies a goal string into one of five classes, resolving
// the analysis-vs-execution-intent boundary the terminal contract needs
// before deciding whether to inject a trade step.
type Intent string

const (
	// IntentExecution means the goal asks the orchestrator to act: the
	// terminal trade contract applies.
	IntentExecution Intent = "execution"
	// IntentRetrospective asks about a past decision or trade; never
	// triggers terminal injection even if it mentions trading.
	IntentRetrospective Intent = "retrospective"
	// IntentLossComplaint is a retrospective-shaped complaint about a
	// loss; treated the same as retrospective for terminal injection.
	IntentLossComplaint Intent = "loss_complaint"
	// IntentAnalysisOnly explicitly asks for information, not action.
	IntentAnalysisOnly Intent = "analysis_only"
	// IntentAmbiguous is anything not matched by the other four classes;
	// defaults to analysis (no terminal injection) per the open-question
	// decision — silence on execution intent must never auto-trade.
	IntentAmbiguous Intent = "ambiguous"
)

// executionVerbPattern matches explicit imperative trading verbs.
var executionVerbPattern = regexp.MustCompile(`(?i)\b(buy|sell|open|close|enter|exit|execute|place|short|long|go long|go short|flip)\b.{0,40}\b(position|perp|btc|eth|sol|trade|order)\b|\b(buy|sell|short|long)\b\s+(the\s+)?(market|dip|breakout)`)

// retrospectivePattern matches questions about a past action.
var retrospectivePattern = regexp.MustCompile(`(?i)\b(why did (you|we)|what happened (to|with)|when did (you|we)|how did (you|we))\b`)

// lossComplaintPattern matches a complaint about a loss rather than a
// request to act.
var lossComplaintPattern = regexp.MustCompile(`(?i)\b(lost money|took a loss|down \$?\d|why (did|am) (i|we) (lose|losing)|that trade (lost|hurt))\b`)

// analysisOnlyPattern matches explicit requests for information.
var analysisOnlyPattern = regexp.MustCompile(`(?i)\b(what('?s| is) (the|my|current)|show me|tell me about|analy[sz]e|what do you think|how('?s| is) .* (looking|doing)|check (the|my) (portfolio|position|market))\b`)

// Classify returns the intent class for goal. Checks run in a fixed order
// so an ambiguous goal that matches multiple patterns resolves
// deterministically: retrospective/loss-complaint phrasing always wins
// over an execution verb that merely appears in the same sentence (e.g.
// "why did you buy BTC" is retrospective, not execution), and an
// analysis-only phrasing wins over a bare mention of a trading verb.
func Classify(goal string) Intent {
	switch {
	case retrospectivePattern.MatchString(goal):
		return IntentRetrospective
	case lossComplaintPattern.MatchString(goal):
		return IntentLossComplaint
	case analysisOnlyPattern.MatchString(goal):
		return IntentAnalysisOnly
	case executionVerbPattern.MatchString(goal):
		return IntentExecution
	default:
		return IntentAmbiguous
	}
}

// RequiresTerminalContract reports whether goal's intent should trigger
// terminal-contract injection. Only an unambiguous execution intent
// does; every other class — including ambiguous ones — defaults to no
// injection, since silence on execution intent must never auto-trade.
func RequiresTerminalContract(goal string) bool {
	return Classify(goal) == IntentExecution
}
