package orchestrator

import (
	"github.com/dusk-indust/missionplan/internal/automaton"
	"github.com/dusk-indust/missionplan/internal/plan"
)

// CheckConsistency compares the observable task count of a plan with the
// forward transition count of the logic specification's automaton. A
// mismatch is a *ConsistencyMismatchError. Trust is asymmetric: the plan
// is taken as correct and only the logic is regenerated.
func CheckConsistency(p *plan.Plan, a *automaton.Automaton) error {
	return compareCounts(plan.CountTasks(p), automaton.CountTransitions(a))
}

func compareCounts(planTasks, logicTransitions int) error {
	if planTasks == logicTransitions {
		return nil
	}
	return &ConsistencyMismatchError{PlanTasks: planTasks, LogicTransitions: logicTransitions}
}
