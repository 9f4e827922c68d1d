// Package orchestrator drives one mission request from natural-language
// text to a verified task plan: it asks the generators for a plan and a
// logic specification, cross-checks them, model-checks the plan and
// retries with corrective feedback until the plan verifies or the retry
// budget runs out.
package orchestrator

import (
	"context"
	"time"

	"github.com/dusk-indust/missionplan/internal/compiler"
	"github.com/dusk-indust/missionplan/internal/ltl"
	"github.com/dusk-indust/missionplan/internal/verify"
)

// Orchestrator runs mission requests.
type Orchestrator interface {
	// Run drives one request to Done or Failed. The report is always
	// returned; the error is the terminal cause when the run failed.
	Run(ctx context.Context, request string) (*Report, error)

	// Progress returns a channel that emits progress events.
	Progress() <-chan ProgressEvent
}

// Verifier model-checks an assembled model against a formula.
type Verifier interface {
	Verify(ctx context.Context, model *compiler.Model, macros []ltl.Macro, formula string) (*verify.Result, error)
}

// Sender hands the accepted plan artifact to its consumer.
type Sender interface {
	Send(ctx context.Context, path string) error
}

// Recorder keeps a ledger of finished runs.
type Recorder interface {
	Record(ctx context.Context, r *Report) error
}

// State is the controller's per-request bookkeeping.
type State struct {
	Phase          Phase
	RetryCount     int
	MaxRetries     int
	LastPlanText   string
	LastLogicText  string
	PlanTaskCount  int
	LogicTaskCount int
}

// Outcome is how a run ended.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Attempt records one recoverable failure and the phase it sent the run
// back to.
type Attempt struct {
	Phase    Phase    `json:"phase"`
	Category Category `json:"category"`
	Message  string   `json:"message"`
	RetryTo  Phase    `json:"retryTo"`
}

// Report summarizes a finished run.
type Report struct {
	RunID      string          `json:"runId"`
	Request    string          `json:"request"`
	Outcome    Outcome         `json:"outcome"`
	Category   Category        `json:"category,omitempty"`
	Error      string          `json:"error,omitempty"`
	Capability CapabilityLevel `json:"capability"`
	FinalPhase Phase           `json:"finalPhase"`
	Retries    int             `json:"retries"`
	Attempts   []Attempt       `json:"attempts,omitempty"`

	PlanText         string   `json:"planText,omitempty"`
	LogicText        string   `json:"logicText,omitempty"`
	PlanTasks        int      `json:"planTasks"`
	LogicTransitions int      `json:"logicTransitions"`
	Verification     string   `json:"verification,omitempty"`
	ModelPath        string   `json:"modelPath,omitempty"`
	TrailPath        string   `json:"trailPath,omitempty"`
	SampledRuns      []string `json:"sampledRuns,omitempty"`

	ArtifactPath   string `json:"artifactPath,omitempty"`
	TransportError string `json:"transportError,omitempty"`

	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Succeeded reports whether the run reached Done.
func (r *Report) Succeeded() bool { return r.Outcome == OutcomeSucceeded }

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }
