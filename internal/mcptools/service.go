package mcptools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/missionplan/internal/automaton"
	"github.com/dusk-indust/missionplan/internal/compiler"
	"github.com/dusk-indust/missionplan/internal/ltl"
	"github.com/dusk-indust/missionplan/internal/orchestrator"
	"github.com/dusk-indust/missionplan/internal/plan"
)

// ErrUnavailable is returned by tools whose backing component is not
// configured.
var ErrUnavailable = errors.New("mcptools: tool unavailable")

// RunLister lists recorded runs, newest first.
type RunLister interface {
	Recent(ctx context.Context, limit int) ([]*orchestrator.Report, error)
}

// MissionService handles MCP tool calls. The compile, count and align
// tools need only a template; the others need the components set with
// options.
type MissionService struct {
	template   string
	translator automaton.Translator
	verifier   orchestrator.Verifier
	pipeline   orchestrator.Orchestrator
	runs       RunLister
}

// ServiceOption configures a MissionService.
type ServiceOption func(*MissionService)

// WithTranslator enables check_consistency.
func WithTranslator(t automaton.Translator) ServiceOption {
	return func(s *MissionService) { s.translator = t }
}

// WithVerifier enables verify_mission.
func WithVerifier(v orchestrator.Verifier) ServiceOption {
	return func(s *MissionService) { s.verifier = v }
}

// WithPipeline enables run_mission. Missions run one at a time; an
// orchestrator that is not already an *orchestrator.Serial is wrapped in one.
func WithPipeline(o orchestrator.Orchestrator) ServiceOption {
	return func(s *MissionService) {
		if _, ok := o.(*orchestrator.Serial); !ok {
			o = orchestrator.NewSerial(o, nil)
		}
		s.pipeline = o
	}
}

// WithRunLister enables list_runs.
func WithRunLister(l RunLister) ServiceOption {
	return func(s *MissionService) { s.runs = l }
}

// NewMissionService creates a MissionService compiling against template.
func NewMissionService(template string, opts ...ServiceOption) *MissionService {
	s := &MissionService{template: template}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CompilePlan translates a plan into a Promela model.
func (s *MissionService) CompilePlan(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input CompilePlanInput,
) (*mcp.CallToolResult, CompilePlanOutput, error) {
	p, err := parsePlan(input.PlanXML)
	if err != nil {
		return nil, CompilePlanOutput{}, err
	}
	tpl := input.Template
	if tpl == "" {
		tpl = s.template
	}
	model, cat, err := compiler.Compile(p, tpl)
	if err != nil {
		return nil, CompilePlanOutput{}, err
	}
	return nil, CompilePlanOutput{
		Model:   model.Source,
		Tasks:   nonNil(cat.Tasks),
		Globals: nonNil(cat.Globals),
	}, nil
}

// CountPlanTasks returns the observable task count of a plan.
func (s *MissionService) CountPlanTasks(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input CountPlanTasksInput,
) (*mcp.CallToolResult, CountPlanTasksOutput, error) {
	p, err := parsePlan(input.PlanXML)
	if err != nil {
		return nil, CountPlanTasksOutput{}, err
	}
	actions := []string{}
	for _, a := range plan.Actions(p) {
		actions = append(actions, a.Name)
	}
	return nil, CountPlanTasksOutput{Count: plan.CountTasks(p), Actions: actions}, nil
}

// AlignMacros rewrites the logic's macro identifiers against the names the
// compiled plan declares.
func (s *MissionService) AlignMacros(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input AlignMacrosInput,
) (*mcp.CallToolResult, AlignMacrosOutput, error) {
	p, spec, err := parseBoth(input.PlanXML, input.Logic)
	if err != nil {
		return nil, AlignMacrosOutput{}, err
	}
	_, cat, err := compiler.Compile(p, s.template)
	if err != nil {
		return nil, AlignMacrosOutput{}, err
	}
	aligned := ltl.Align(cat, spec.Macros)

	out := AlignMacrosOutput{Macros: []string{}, Formula: spec.Formula}
	for i, m := range aligned {
		out.Macros = append(out.Macros, m.String())
		if m.Expr != spec.Macros[i].Expr {
			out.Renamed++
		}
	}
	return nil, out, nil
}

// CheckConsistency compares the plan's task count with the logic's
// forward transition count.
func (s *MissionService) CheckConsistency(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CheckConsistencyInput,
) (*mcp.CallToolResult, CheckConsistencyOutput, error) {
	if s.translator == nil {
		return nil, CheckConsistencyOutput{}, fmt.Errorf("%w: no translator configured", ErrUnavailable)
	}
	p, spec, err := parseBoth(input.PlanXML, input.Logic)
	if err != nil {
		return nil, CheckConsistencyOutput{}, err
	}
	aut, err := s.translator.Translate(ctx, spec.Formula)
	if err != nil {
		return nil, CheckConsistencyOutput{}, fmt.Errorf("translate: %w", err)
	}

	out := CheckConsistencyOutput{
		PlanTasks:        plan.CountTasks(p),
		LogicTransitions: automaton.CountTransitions(aut),
		Consistent:       true,
	}
	var mismatch *orchestrator.ConsistencyMismatchError
	if err := orchestrator.CheckConsistency(p, aut); errors.As(err, &mismatch) {
		out.Consistent = false
		out.Feedback = mismatch.Feedback()
	}
	return nil, out, nil
}

// VerifyMission compiles the plan, aligns the logic and model-checks it.
func (s *MissionService) VerifyMission(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input VerifyMissionInput,
) (*mcp.CallToolResult, VerifyMissionOutput, error) {
	if s.verifier == nil {
		return nil, VerifyMissionOutput{}, fmt.Errorf("%w: no model checker configured", ErrUnavailable)
	}
	p, spec, err := parseBoth(input.PlanXML, input.Logic)
	if err != nil {
		return nil, VerifyMissionOutput{}, err
	}
	model, cat, err := compiler.Compile(p, s.template)
	if err != nil {
		return nil, VerifyMissionOutput{}, err
	}
	res, err := s.verifier.Verify(ctx, model, ltl.Align(cat, spec.Macros), spec.Formula)
	if err != nil {
		return nil, VerifyMissionOutput{}, fmt.Errorf("verify: %w", err)
	}
	return nil, VerifyMissionOutput{
		Outcome:        string(res.Outcome),
		Counterexample: res.Counterexample,
		ModelPath:      res.ModelPath,
		TrailPath:      res.TrailPath,
	}, nil
}

// RunMission drives one request through the full pipeline. A failed run
// is reported in the output, not as a tool error.
func (s *MissionService) RunMission(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunMissionInput,
) (*mcp.CallToolResult, RunMissionOutput, error) {
	if s.pipeline == nil {
		return nil, RunMissionOutput{}, fmt.Errorf("%w: no pipeline configured", ErrUnavailable)
	}
	if input.Request == "" {
		return nil, RunMissionOutput{}, errors.New("request is required")
	}
	rep, err := s.pipeline.Run(ctx, input.Request)
	if rep == nil {
		return nil, RunMissionOutput{Outcome: string(orchestrator.OutcomeFailed), Message: errString(err)}, nil
	}
	out := RunMissionOutput{
		RunID:        rep.RunID,
		Outcome:      string(rep.Outcome),
		Category:     string(rep.Category),
		Message:      errString(err),
		Retries:      rep.Retries,
		ArtifactPath: rep.ArtifactPath,
	}
	if rep.Succeeded() {
		out.PlanXML = rep.PlanText
	}
	return nil, out, nil
}

// ListRuns returns recorded runs, newest first.
func (s *MissionService) ListRuns(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListRunsInput,
) (*mcp.CallToolResult, ListRunsOutput, error) {
	if s.runs == nil {
		return nil, ListRunsOutput{}, fmt.Errorf("%w: no run history configured", ErrUnavailable)
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	reports, err := s.runs.Recent(ctx, limit)
	if err != nil {
		return nil, ListRunsOutput{}, err
	}
	out := ListRunsOutput{Runs: []RunSummary{}}
	for _, r := range reports {
		out.Runs = append(out.Runs, RunSummary{
			RunID:     r.RunID,
			Request:   r.Request,
			Outcome:   string(r.Outcome),
			Category:  string(r.Category),
			Retries:   r.Retries,
			StartedAt: r.StartedAt.UTC().Format(time.RFC3339),
		})
	}
	return nil, out, nil
}

func parsePlan(xml string) (*plan.Plan, error) {
	if xml == "" {
		return nil, errors.New("planXml is required")
	}
	return plan.ParseXML([]byte(xml))
}

func parseBoth(planXML, logic string) (*plan.Plan, *ltl.Spec, error) {
	p, err := parsePlan(planXML)
	if err != nil {
		return nil, nil, err
	}
	if logic == "" {
		return nil, nil, errors.New("logic is required")
	}
	spec, err := ltl.Parse(logic)
	if err != nil {
		return nil, nil, err
	}
	return p, spec, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
