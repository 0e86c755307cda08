package orchestrator

import (
	"regexp"
	"strings"
)

// closedTickerSet is the fallback set of tickers recognized in free text
// when no configured symbol list is available.
var closedTickerSet = []string{"BTC", "ETH", "SOL", "ARB", "AVAX", "DOGE", "MATIC", "OP", "LINK", "SUI"}

var tickerWordPattern = regexp.MustCompile(`\b[A-Za-z]{2,6}\b`)

// inferSymbol finds the first ticker from configured (falling back to
// closedTickerSet) that appears as a whole word in goal, case-insensitive.
func inferSymbol(goal string, configured []string) string {
	set := configured
	if len(set) == 0 {
		set = closedTickerSet
	}
	words := tickerWordPattern.FindAllString(goal, -1)
	upperWords := make(map[string]bool, len(words))
	for _, w := range words {
		upperWords[strings.ToUpper(w)] = true
	}
	for _, sym := range set {
		if upperWords[strings.ToUpper(sym)] {
			return strings.ToUpper(sym)
		}
	}
	return ""
}
