package orchestrator

import (
	"regexp"
	"strings"

	"github.com/perpctl/tradeagent/pkg/models"
)

var tradeKeywordPattern = regexp.MustCompile(`(?i)\b(buy|sell|long|short|perp|leverage|position|order|trade|margin|liquidat|funding rate|stop.loss|take.profit)\b`)

var adminKeywordPattern = regexp.MustCompile(`(?i)\b(schedule|unschedule|playbook|config|policy override|pause autonomy|resume autonomy|observation.only)\b`)

// DetectMode implements phase 1: deterministic from goal
// keywords unless forceMode is set. Admin keywords take priority over
// trade keywords since a goal like "pause autonomy before buying more"
// is an admin instruction, not a trade request.
func DetectMode(goal string, forceMode models.Mode) models.Mode {
	if forceMode != "" {
		return forceMode
	}
	lower := strings.ToLower(goal)
	if adminKeywordPattern.MatchString(lower) {
		return models.ModeAdmin
	}
	if tradeKeywordPattern.MatchString(lower) {
		return models.ModeTrade
	}
	return models.ModeAnalysis
}
