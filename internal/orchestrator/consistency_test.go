package orchestrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/missionplan/internal/automaton"
	"github.com/dusk-indust/missionplan/internal/plan"
)

// twoBranchHOA: move, then either (low, co2) or (!low, thermal).
const twoBranchHOA = `HOA: v1
States: 5
Start: 0
AP: 4 "move" "low" "co2" "thermal"
acc-name: Buchi
Acceptance: 1 Inf(0)
--BODY--
State: 0
[0] 1
[!0] 0
State: 1
[1] 2
[!1] 3
State: 2
[2] 4
State: 3
[3] 4
State: 4 {0}
[t] 4
--END--
`

func twoBranchPlan() *plan.Plan {
	cond := func(c plan.Comparator) plan.Node {
		return &plan.CheckValue{ValueVar: "temp", Threshold: 30, Comparator: c}
	}
	return &plan.Plan{Root: &plan.Sequence{Children: []plan.Node{
		&plan.Action{Name: "goToTree1", ActionType: "MoveToGPSLocation"},
		&plan.Fallback{Children: []plan.Node{
			&plan.Sequence{Children: []plan.Node{cond(plan.LT), &plan.Action{Name: "co2Tree1", ActionType: "TakeCO2Reading"}}},
			&plan.Sequence{Children: []plan.Node{cond(plan.GTE), &plan.Action{Name: "thermalTree1", ActionType: "TakeThermalPicture"}}},
		}},
	}}}
}

func TestCheckConsistency_TwoBranchPlanMatchesAutomaton(t *testing.T) {
	a, err := automaton.ParseHOA(twoBranchHOA)
	require.NoError(t, err)

	assert.Equal(t, 5, plan.CountTasks(twoBranchPlan()))
	assert.Equal(t, 5, automaton.CountTransitions(a))
	assert.NoError(t, CheckConsistency(twoBranchPlan(), a))
}

func TestCheckConsistency_Mismatch(t *testing.T) {
	a, err := automaton.ParseHOA(twoBranchHOA)
	require.NoError(t, err)
	p := &plan.Plan{Root: &plan.Sequence{Children: []plan.Node{
		&plan.Action{Name: "a", ActionType: "MoveToGPSLocation"},
	}}}

	err = CheckConsistency(p, a)
	var mismatch *ConsistencyMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 1, mismatch.PlanTasks)
	assert.Equal(t, 5, mismatch.LogicTransitions)
	assert.Equal(t, NeedLogic, mismatch.RetryPhase())
}

func TestConsistencyMismatch_FeedbackStatesMagnitudeAndDirection(t *testing.T) {
	fewer := &ConsistencyMismatchError{PlanTasks: 5, LogicTransitions: 4}
	assert.Equal(t, -1, fewer.Delta())
	assert.Contains(t, fewer.Feedback(), "5 tasks")
	assert.Contains(t, fewer.Feedback(), "1 too few")

	more := &ConsistencyMismatchError{PlanTasks: 3, LogicTransitions: 6}
	assert.Contains(t, more.Feedback(), "3 too many")
}
