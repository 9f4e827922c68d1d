package orchestrator

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/missionplan/internal/agent"
	"github.com/dusk-indust/missionplan/internal/plan"
)

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		err  error
		want Category
	}{
		{&CompilationError{Err: &plan.UnknownNodeKindError{Tag: "Dance"}}, CategoryCompilation},
		{&GenerationError{Phase: NeedPlan, Err: agent.ErrNoCodeBlock}, CategoryGeneration},
		{&ConsistencyMismatchError{PlanTasks: 5, LogicTransitions: 4}, CategoryConsistencyMismatch},
		{&VerificationSetupError{Output: "syntax error"}, CategoryVerificationSetup},
		{&VerificationViolation{Counterexample: "trail"}, CategoryVerificationViolation},
		{&ArbitrationRejection{Explanation: "no"}, CategoryArbitrationRejection},
		{&RetryBudgetExhausted{Retries: 5}, CategoryRetryBudgetExhausted},
		{fmt.Errorf("wrapped: %w", &VerificationSetupError{}), CategoryVerificationSetup},
		{errors.New("disk full"), CategoryInternal},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryOf(tt.err))
		})
	}
}

func TestRecoverable_RetryPhases(t *testing.T) {
	tests := []struct {
		err  Recoverable
		want Phase
	}{
		{&GenerationError{Phase: NeedArbitration, Err: errors.New("x")}, NeedArbitration},
		{&ConsistencyMismatchError{}, NeedLogic},
		{&VerificationSetupError{}, NeedLogic},
		{&VerificationViolation{}, NeedPlan},
		{&ArbitrationRejection{}, NeedLogic},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.RetryPhase(), tt.err.Error())
	}
}

func TestTerminalErrors_AreNotRecoverable(t *testing.T) {
	var rec Recoverable
	assert.False(t, errors.As(&CompilationError{Err: errors.New("x")}, &rec))
	_, ok := any(&RetryBudgetExhausted{}).(Recoverable)
	assert.False(t, ok)
}

func TestRetryBudgetExhausted_UnwrapsLast(t *testing.T) {
	last := &GenerationError{Phase: NeedPlan, Err: agent.ErrNoCodeBlock}
	err := &RetryBudgetExhausted{Retries: 3, Last: last}
	require.ErrorIs(t, err, agent.ErrNoCodeBlock)
	assert.Contains(t, err.Error(), "retry-budget-exhausted")
	assert.Contains(t, err.Error(), "3 retries")
}

func TestFeedback_CarriesContext(t *testing.T) {
	assert.Contains(t, (&VerificationSetupError{Output: "spin: line 3, syntax error"}).Feedback(), "line 3, syntax error")
	assert.Contains(t, (&VerificationViolation{Counterexample: "step 4: temp = 31"}).Feedback(), "step 4: temp = 31")
	assert.Contains(t, (&ArbitrationRejection{Explanation: "thermal picture missing"}).Feedback(), "thermal picture missing")
	assert.Contains(t, (&GenerationError{Err: agent.ErrNoCodeBlock}).Feedback(), "no code block")
}
