// Package status renders mission-run history for the terminal.
package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/dusk-indust/missionplan/internal/history"
	"github.com/dusk-indust/missionplan/internal/orchestrator"
)

// Renderer formats runs. Plain output carries no color and no box drawing.
type Renderer struct {
	pretty bool
}

// New creates a renderer.
func New(pretty bool) *Renderer {
	return &Renderer{pretty: pretty}
}

// Runs formats a list of runs, newest first as given.
func (r *Renderer) Runs(runs []*orchestrator.Report) string {
	if len(runs) == 0 {
		return "No mission runs recorded.\nRun 'missionplan run <request>' to start one.\n"
	}

	var sb strings.Builder
	if r.pretty {
		sb.WriteString(color.CyanString("Recent Missions\n"))
		sb.WriteString(strings.Repeat("─", 60) + "\n")
	}
	for _, run := range runs {
		r.formatRun(&sb, run)
	}
	return sb.String()
}

func (r *Renderer) formatRun(sb *strings.Builder, run *orchestrator.Report) {
	when := run.StartedAt.Local().Format("2006-01-02 15:04")
	dur := run.Duration().Round(100 * time.Millisecond)
	request := truncate(run.Request, 48)

	reason := ""
	if !run.Succeeded() && run.Category != "" {
		reason = " " + string(run.Category)
	}

	if !r.pretty {
		fmt.Fprintf(sb, "[%s] %s %s retries=%d %s%s %q\n",
			when, run.RunID, run.Outcome, run.Retries, dur, reason, request)
		return
	}

	mark := color.GreenString("✓")
	if !run.Succeeded() {
		mark = color.RedString("✗")
	}
	retries := ""
	if run.Retries > 0 {
		retries = color.YellowString(" ↻%d", run.Retries)
	}
	fmt.Fprintf(sb, "%s %s %s%s (%s)%s\n", mark, color.HiBlackString(when), request, retries, dur,
		color.RedString(reason))
}

// Run formats the full detail of a single run, including every retry.
func (r *Renderer) Run(run *orchestrator.Report) string {
	var sb strings.Builder

	title := fmt.Sprintf("Mission %s", run.RunID)
	if r.pretty {
		title = color.CyanString(title)
	}
	fmt.Fprintf(&sb, "%s\n", title)
	fmt.Fprintf(&sb, "  Request:     %s\n", run.Request)
	fmt.Fprintf(&sb, "  Outcome:     %s\n", r.outcome(run))
	fmt.Fprintf(&sb, "  Capability:  %s\n", run.Capability)
	fmt.Fprintf(&sb, "  Final phase: %s\n", run.FinalPhase)
	fmt.Fprintf(&sb, "  Retries:     %d\n", run.Retries)
	if run.PlanTasks > 0 || run.LogicTransitions > 0 {
		fmt.Fprintf(&sb, "  Tasks:       plan %d, logic %d\n", run.PlanTasks, run.LogicTransitions)
	}
	if run.Verification != "" {
		fmt.Fprintf(&sb, "  Verified:    %s\n", run.Verification)
	}
	if run.ArtifactPath != "" {
		fmt.Fprintf(&sb, "  Artifact:    %s\n", run.ArtifactPath)
	}
	if run.TrailPath != "" {
		fmt.Fprintf(&sb, "  Trail:       %s\n", run.TrailPath)
	}
	if run.TransportError != "" {
		fmt.Fprintf(&sb, "  Transport:   %s\n", run.TransportError)
	}

	if len(run.Attempts) > 0 {
		sb.WriteString("  Attempts:\n")
		for i, a := range run.Attempts {
			fmt.Fprintf(&sb, "    %d. %s at %s -> %s: %s\n", i+1, a.Category, a.Phase, a.RetryTo,
				truncate(a.Message, 80))
		}
	}
	return sb.String()
}

// Summary formats aggregate ledger statistics.
func (r *Renderer) Summary(s *history.Summary) string {
	if s == nil || s.Total == 0 {
		return "No mission runs recorded.\n"
	}
	var sb strings.Builder
	ok := fmt.Sprintf("%d succeeded", s.Succeeded)
	bad := fmt.Sprintf("%d failed", s.Failed)
	if r.pretty {
		ok = color.GreenString(ok)
		bad = color.RedString(bad)
	}
	fmt.Fprintf(&sb, "%d runs: %s, %s, %.1f retries on average\n", s.Total, ok, bad, s.AvgRetries)

	for _, cat := range categoryOrder {
		if n := s.ByCategory[cat]; n > 0 {
			fmt.Fprintf(&sb, "  %-24s %d\n", cat, n)
		}
	}
	if !s.LastRun.IsZero() {
		fmt.Fprintf(&sb, "Last run: %s\n", s.LastRun.Local().Format("2006-01-02 15:04"))
	}
	return sb.String()
}

// Outcome formats the one-line result printed after a run.
func (r *Renderer) Outcome(run *orchestrator.Report) string {
	line := r.outcome(run)
	if run.Succeeded() && run.ArtifactPath != "" {
		line += " -> " + run.ArtifactPath
	}
	return line
}

func (r *Renderer) outcome(run *orchestrator.Report) string {
	if run.Succeeded() {
		s := fmt.Sprintf("succeeded after %d retries", run.Retries)
		if r.pretty {
			return color.GreenString(s)
		}
		return s
	}
	s := fmt.Sprintf("failed (%s)", run.Category)
	if run.Error != "" {
		s += ": " + run.Error
	}
	if r.pretty {
		return color.RedString(s)
	}
	return s
}

var categoryOrder = []orchestrator.Category{
	orchestrator.CategoryCompilation,
	orchestrator.CategoryGeneration,
	orchestrator.CategoryConsistencyMismatch,
	orchestrator.CategoryVerificationSetup,
	orchestrator.CategoryVerificationViolation,
	orchestrator.CategoryArbitrationRejection,
	orchestrator.CategoryRetryBudgetExhausted,
	orchestrator.CategoryInternal,
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
