package status

import (
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/dusk-indust/missionplan/internal/history"
	"github.com/dusk-indust/missionplan/internal/orchestrator"
)

func init() {
	color.NoColor = true
}

func sampleRuns() []*orchestrator.Report {
	start := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)
	return []*orchestrator.Report{
		{
			RunID:        "01J0OK",
			Request:      "survey   the\nnorth field",
			Outcome:      orchestrator.OutcomeSucceeded,
			Retries:      1,
			ArtifactPath: "logs/mission-01J0OK.xml",
			StartedAt:    start,
			FinishedAt:   start.Add(2 * time.Second),
		},
		{
			RunID:      "01J0BAD",
			Request:    "pick apples",
			Outcome:    orchestrator.OutcomeFailed,
			Category:   orchestrator.CategoryRetryBudgetExhausted,
			Error:      "retry-budget-exhausted: 5 retries",
			Retries:    5,
			StartedAt:  start,
			FinishedAt: start.Add(time.Minute),
		},
	}
}

func TestRuns_Empty(t *testing.T) {
	assert.Contains(t, New(true).Runs(nil), "No mission runs recorded.")
}

func TestRuns_Plain(t *testing.T) {
	out := New(false).Runs(sampleRuns())
	assert.Contains(t, out, "01J0OK succeeded retries=1 2s \"survey the north field\"")
	assert.Contains(t, out, "01J0BAD failed retries=5 1m0s retry-budget-exhausted \"pick apples\"")
	assert.NotContains(t, out, "Recent Missions")
}

func TestRuns_Pretty(t *testing.T) {
	out := New(true).Runs(sampleRuns())
	assert.Contains(t, out, "Recent Missions")
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "✗")
	assert.Contains(t, out, "↻5")
}

func TestRun_Detail(t *testing.T) {
	run := sampleRuns()[1]
	run.Capability = orchestrator.CapFull
	run.FinalPhase = orchestrator.Failed
	run.Attempts = []orchestrator.Attempt{{
		Phase:    orchestrator.NeedConsistency,
		Category: orchestrator.CategoryConsistencyMismatch,
		Message:  "plan has 6 tasks",
		RetryTo:  orchestrator.NeedLogic,
	}}
	out := New(false).Run(run)
	assert.Contains(t, out, "Mission 01J0BAD")
	assert.Contains(t, out, "Outcome:     failed (retry-budget-exhausted): retry-budget-exhausted: 5 retries")
	assert.Contains(t, out, "Capability:  full")
	assert.Contains(t, out, "1. consistency-mismatch at need-consistency -> need-logic: plan has 6 tasks")
}

func TestOutcome(t *testing.T) {
	runs := sampleRuns()
	r := New(false)
	assert.Equal(t, "succeeded after 1 retries -> logs/mission-01J0OK.xml", r.Outcome(runs[0]))
	assert.Equal(t, "failed (retry-budget-exhausted): retry-budget-exhausted: 5 retries", r.Outcome(runs[1]))
}

func TestSummary(t *testing.T) {
	r := New(false)
	assert.Equal(t, "No mission runs recorded.\n", r.Summary(nil))

	out := r.Summary(&history.Summary{
		Total:      3,
		Succeeded:  2,
		Failed:     1,
		AvgRetries: 1.5,
		ByCategory: map[orchestrator.Category]int{orchestrator.CategoryVerificationViolation: 1},
	})
	assert.Contains(t, out, "3 runs: 2 succeeded, 1 failed, 1.5 retries on average")
	assert.Contains(t, out, "verification-violation")
	assert.NotContains(t, out, "Last run")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
