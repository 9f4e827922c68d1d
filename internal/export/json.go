package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dusk-indust/missionplan/internal/orchestrator"
	"github.com/dusk-indust/missionplan/internal/plan"
)

// RunExport is the top-level JSON report of one mission run.
type RunExport struct {
	RunID      string         `json:"runId"`
	ExportedAt string         `json:"exportedAt"`
	Request    string         `json:"request"`
	Outcome    string         `json:"outcome"`
	Category   string         `json:"category,omitempty"`
	Error      string         `json:"error,omitempty"`
	Capability string         `json:"capability"`
	Retries    int            `json:"retries"`
	DurationMS int64          `json:"durationMs"`
	Attempts   []AttemptEntry `json:"attempts,omitempty"`

	Tasks            []TaskExport `json:"tasks,omitempty"`
	PlanTaskCount    int          `json:"planTaskCount"`
	LogicTransitions int          `json:"logicTransitions"`
	Logic            string       `json:"logic,omitempty"`
	Verification     string       `json:"verification,omitempty"`
	SampledRuns      []string     `json:"sampledRuns,omitempty"`
	ArtifactPath     string       `json:"artifactPath,omitempty"`
	TransportError   string       `json:"transportError,omitempty"`
}

// AttemptEntry describes one retried phase.
type AttemptEntry struct {
	Phase    string `json:"phase"`
	Category string `json:"category"`
	RetryTo  string `json:"retryTo"`
	Message  string `json:"message"`
}

// TaskExport describes one action of the final plan, in execution order.
type TaskExport struct {
	Name       string `json:"name"`
	ActionType string `json:"actionType"`
}

// ExportRun builds a RunExport from a finished run. The plan text is
// re-parsed to list its actions; a plan that does not parse is reported
// without tasks.
func ExportRun(r *orchestrator.Report) *RunExport {
	out := &RunExport{
		RunID:            r.RunID,
		ExportedAt:       time.Now().UTC().Format(time.RFC3339),
		Request:          r.Request,
		Outcome:          string(r.Outcome),
		Category:         string(r.Category),
		Error:            r.Error,
		Capability:       r.Capability.String(),
		Retries:          r.Retries,
		DurationMS:       r.Duration().Milliseconds(),
		PlanTaskCount:    r.PlanTasks,
		LogicTransitions: r.LogicTransitions,
		Logic:            r.LogicText,
		Verification:     r.Verification,
		SampledRuns:      r.SampledRuns,
		ArtifactPath:     r.ArtifactPath,
		TransportError:   r.TransportError,
	}
	for _, a := range r.Attempts {
		out.Attempts = append(out.Attempts, AttemptEntry{
			Phase:    a.Phase.String(),
			Category: string(a.Category),
			RetryTo:  a.RetryTo.String(),
			Message:  a.Message,
		})
	}
	if r.PlanText != "" {
		if p, err := plan.ParseXML([]byte(r.PlanText)); err == nil {
			for _, act := range plan.Actions(p) {
				out.Tasks = append(out.Tasks, TaskExport{Name: act.Name, ActionType: act.ActionType})
			}
		}
	}
	return out
}

// RunReport returns the indented JSON report of a run.
func RunReport(r *orchestrator.Report) ([]byte, error) {
	data, err := json.MarshalIndent(ExportRun(r), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: marshal run %s: %w", r.RunID, err)
	}
	return append(data, '\n'), nil
}

// WriteRunReport writes the JSON report to path via a temp file and rename,
// so readers never observe a partial report.
func WriteRunReport(path string, r *orchestrator.Report) error {
	data, err := RunReport(r)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("export: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".report-*.json")
	if err != nil {
		return fmt.Errorf("export: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("export: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("export: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("export: rename: %w", err)
	}
	return nil
}
