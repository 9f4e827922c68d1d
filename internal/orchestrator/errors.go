package orchestrator

import (
	"errors"
	"fmt"
	"strings"
)

// Category names a class of pipeline failure. It is what users see when
// a run ends.
type Category string

const (
	CategoryCompilation           Category = "compilation"
	CategoryGeneration            Category = "generation"
	CategoryConsistencyMismatch   Category = "consistency-mismatch"
	CategoryVerificationSetup     Category = "verification-setup"
	CategoryVerificationViolation Category = "verification-violation"
	CategoryArbitrationRejection  Category = "arbitration-rejection"
	CategoryRetryBudgetExhausted  Category = "retry-budget-exhausted"
	CategoryInternal              Category = "internal"
)

// Categorized is implemented by every error in the pipeline taxonomy.
type Categorized interface {
	error
	Category() Category
}

// Recoverable errors are folded into the next generator prompt instead of
// ending the run.
type Recoverable interface {
	Categorized
	// RetryPhase is the phase the run re-enters.
	RetryPhase() Phase
	// Feedback is the corrective context for the generator of that phase.
	Feedback() string
}

// CategoryOf returns the category of err, or CategoryInternal for errors
// outside the taxonomy.
func CategoryOf(err error) Category {
	var c Categorized
	if errors.As(err, &c) {
		return c.Category()
	}
	return CategoryInternal
}

// ---------- terminal ----------

// CompilationError means the plan cannot be turned into a model. The run
// ends; a different plan must come from the caller.
type CompilationError struct {
	Err error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("%s: %v", CategoryCompilation, e.Err)
}

func (e *CompilationError) Unwrap() error      { return e.Err }
func (e *CompilationError) Category() Category { return CategoryCompilation }

// RetryBudgetExhausted ends a run whose retry counter reached the limit.
// No artifact is transmitted.
type RetryBudgetExhausted struct {
	Retries int
	// Last is the recoverable error behind the final retry.
	Last error
}

func (e *RetryBudgetExhausted) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("%s: gave up after %d retries", CategoryRetryBudgetExhausted, e.Retries)
	}
	return fmt.Sprintf("%s: gave up after %d retries; last: %v", CategoryRetryBudgetExhausted, e.Retries, e.Last)
}

func (e *RetryBudgetExhausted) Unwrap() error      { return e.Last }
func (e *RetryBudgetExhausted) Category() Category { return CategoryRetryBudgetExhausted }

// ---------- recoverable ----------

// GenerationError wraps a generator failure or unusable generator output.
// The same phase is asked again.
type GenerationError struct {
	Phase Phase
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", CategoryGeneration, e.Phase, e.Err)
}

func (e *GenerationError) Unwrap() error      { return e.Err }
func (e *GenerationError) Category() Category { return CategoryGeneration }
func (e *GenerationError) RetryPhase() Phase  { return e.Phase }

func (e *GenerationError) Feedback() string {
	return fmt.Sprintf("Your previous answer could not be used: %v", e.Err)
}

// ConsistencyMismatchError reports differing task counts between the plan
// and the automaton of the logic specification. The plan is trusted and
// the logic is regenerated.
type ConsistencyMismatchError struct {
	PlanTasks        int
	LogicTransitions int
}

func (e *ConsistencyMismatchError) Error() string {
	return fmt.Sprintf("%s: plan has %d tasks, logic has %d transitions",
		CategoryConsistencyMismatch, e.PlanTasks, e.LogicTransitions)
}

func (e *ConsistencyMismatchError) Category() Category { return CategoryConsistencyMismatch }
func (e *ConsistencyMismatchError) RetryPhase() Phase  { return NeedLogic }

// Delta is LogicTransitions minus PlanTasks.
func (e *ConsistencyMismatchError) Delta() int { return e.LogicTransitions - e.PlanTasks }

func (e *ConsistencyMismatchError) Feedback() string {
	d := e.Delta()
	direction, n := "too many", d
	if d < 0 {
		direction, n = "too few", -d
	}
	return fmt.Sprintf(
		"The mission has %d tasks but your specification describes %d transitions, %d %s. "+
			"Rewrite the specification so every task of the mission is one step.",
		e.PlanTasks, e.LogicTransitions, n, direction)
}

// VerificationSetupError means the model checker rejected the assembled
// model before searching it, usually a malformed formula or macro.
type VerificationSetupError struct {
	Output string
}

func (e *VerificationSetupError) Error() string {
	return fmt.Sprintf("%s: checker rejected the model: %s", CategoryVerificationSetup, firstLine(e.Output))
}

func (e *VerificationSetupError) Category() Category { return CategoryVerificationSetup }
func (e *VerificationSetupError) RetryPhase() Phase  { return NeedLogic }

func (e *VerificationSetupError) Feedback() string {
	return "The model checker could not use your specification. Its output was:\n" +
		strings.TrimSpace(e.Output) +
		"\nFix the specification. The formula may only reference macro names."
}

// VerificationViolation means the checker found an execution of the plan
// that breaks the specification. The plan is regenerated.
type VerificationViolation struct {
	Counterexample string
	TrailPath      string
}

func (e *VerificationViolation) Error() string {
	return fmt.Sprintf("%s: counterexample in %s", CategoryVerificationViolation, e.TrailPath)
}

func (e *VerificationViolation) Category() Category { return CategoryVerificationViolation }
func (e *VerificationViolation) RetryPhase() Phase  { return NeedPlan }

func (e *VerificationViolation) Feedback() string {
	return "The plan violates the mission requirements. The model checker produced this counterexample:\n" +
		strings.TrimSpace(e.Counterexample) +
		"\nRevise the plan so this execution is no longer possible."
}

// ArbitrationRejection means the arbiter judged sampled runs of the logic
// specification unfaithful to the request. The logic is regenerated.
type ArbitrationRejection struct {
	Explanation string
}

func (e *ArbitrationRejection) Error() string {
	return fmt.Sprintf("%s: %s", CategoryArbitrationRejection, firstLine(e.Explanation))
}

func (e *ArbitrationRejection) Category() Category { return CategoryArbitrationRejection }
func (e *ArbitrationRejection) RetryPhase() Phase  { return NeedLogic }

func (e *ArbitrationRejection) Feedback() string {
	return "A reviewer rejected executions of your specification:\n" +
		strings.TrimSpace(e.Explanation) +
		"\nRewrite the specification to match the mission request."
}

// Compile-time checks.
var (
	_ Categorized = (*CompilationError)(nil)
	_ Categorized = (*RetryBudgetExhausted)(nil)
	_ Recoverable = (*GenerationError)(nil)
	_ Recoverable = (*ConsistencyMismatchError)(nil)
	_ Recoverable = (*VerificationSetupError)(nil)
	_ Recoverable = (*VerificationViolation)(nil)
	_ Recoverable = (*ArbitrationRejection)(nil)
)

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
