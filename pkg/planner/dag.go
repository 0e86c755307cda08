package planner

import (
	"errors"
	"fmt"

	"github.com/perpctl/tradeagent/pkg/models"
)

// ErrCyclicPlan is returned by AssertAcyclic when a plan's dependsOn
// graph contains a cycle.
var ErrCyclicPlan = errors.New("planner: plan contains a dependency cycle")

// AssertAcyclic reports ErrCyclicPlan (wrapping the offending step id) if
// plan.Steps' dependsOn edges form a cycle. The orchestrator calls this
// once after planning/revision; a cycle doesn't panic or corrupt state on
// its own — those steps just never become ready and the run terminates
// via the iteration cap or an empty ready set. This assertion exists
// purely as an early, loud diagnostic.
func AssertAcyclic(plan *models.Plan) error {
	const (
		white = 0
		gray = 1
		black = 2
	)
	byID := plan.ByID()
	color := make(map[string]int, len(plan.Steps))

	var visit func(id string) error
	visit = func(id string) error {
		switch color[id] {
		case gray:
			return fmt.Errorf("%w: step %q", ErrCyclicPlan, id)
		case black:
			return nil
		}
		color[id] = gray
		if step, ok := byID[id]; ok {
			for _, dep := range step.DependsOn {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}

	for _, s := range plan.Steps {
		if color[s.ID] == white {
			if err := visit(s.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
