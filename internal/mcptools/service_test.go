package mcptools

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/missionplan/internal/automaton"
	"github.com/dusk-indust/missionplan/internal/compiler"
	"github.com/dusk-indust/missionplan/internal/ltl"
	"github.com/dusk-indust/missionplan/internal/orchestrator"
	"github.com/dusk-indust/missionplan/internal/verify"
)

const template = "mtype = { MoveToGPSLocation, TakeAmbientTemperature, TakeCO2Reading, TakeThermalPicture };"

// missionXML has six observable tasks.
const missionXML = `<root BTCPP_format="4">
  <BehaviorTree ID="MainTree">
    <Sequence>
      <MoveToGPSLocation name="goToTree1"/>
      <TakeAmbientTemperature name="readTemp1"/>
      <Fallback>
        <Sequence>
          <CheckValue value="{temp}" threshold="30" comp="lt"/>
          <TakeCO2Reading name="co2Tree1"/>
        </Sequence>
        <Sequence>
          <CheckValue value="{temp}" threshold="30" comp="gte"/>
          <TakeThermalPicture name="thermalTree1"/>
        </Sequence>
      </Fallback>
    </Sequence>
  </BehaviorTree>
</root>`

const missionLogic = `#define move (goTo.action.actionType == MoveToGPSLocation)
#define read (readTemp.action.actionType == TakeAmbientTemperature)
#define cold (temp < 30)
#define co2 (co2.action.actionType == TakeCO2Reading)
#define thermal (thermal.action.actionType == TakeThermalPicture)
<> (move && X (read && X ((cold && X co2) || (!cold && X thermal))))`

// chain is an automaton with n forward transitions.
func chain(n int) *automaton.Automaton {
	a := &automaton.Automaton{}
	for i := 0; i <= n; i++ {
		s := automaton.State{ID: i}
		if i < n {
			s.Edges = []automaton.Edge{{Dst: i + 1, Label: fmt.Sprintf("s%d", i)}}
		} else {
			s.Accepting = true
			s.Edges = []automaton.Edge{{Dst: i, Label: "1", SelfLoop: true}}
		}
		a.States = append(a.States, s)
	}
	return a
}

func fixedTranslator(n int) automaton.Translator {
	return automaton.TranslatorFunc(func(context.Context, string) (*automaton.Automaton, error) {
		return chain(n), nil
	})
}

type fakeVerifier struct {
	result *verify.Result
	err    error
	macros []ltl.Macro
	model  *compiler.Model
}

func (f *fakeVerifier) Verify(_ context.Context, model *compiler.Model, macros []ltl.Macro, _ string) (*verify.Result, error) {
	f.model, f.macros = model, macros
	return f.result, f.err
}

type fakePipeline struct {
	report *orchestrator.Report
	err    error
	got    string
}

func (f *fakePipeline) Run(_ context.Context, request string) (*orchestrator.Report, error) {
	f.got = request
	return f.report, f.err
}

func (f *fakePipeline) Progress() <-chan orchestrator.ProgressEvent { return nil }

type fakeRuns struct {
	reports []*orchestrator.Report
	limit   int
}

func (f *fakeRuns) Recent(_ context.Context, limit int) ([]*orchestrator.Report, error) {
	f.limit = limit
	return f.reports, nil
}

func TestCompilePlan(t *testing.T) {
	svc := NewMissionService(template)
	_, out, err := svc.CompilePlan(context.Background(), nil, CompilePlanInput{PlanXML: missionXML})
	require.NoError(t, err)
	assert.Contains(t, out.Model, template)
	assert.Contains(t, out.Model, "Task goToTree1;")
	assert.Contains(t, out.Model, "select(temp : 29..31);")
	assert.Equal(t, []string{"goToTree1", "readTemp1", "co2Tree1", "thermalTree1"}, out.Tasks)
	assert.Equal(t, []string{"temp"}, out.Globals)
}

func TestCompilePlan_TemplateOverride(t *testing.T) {
	svc := NewMissionService(template)
	_, out, err := svc.CompilePlan(context.Background(), nil, CompilePlanInput{PlanXML: missionXML, Template: "/* custom */"})
	require.NoError(t, err)
	assert.Contains(t, out.Model, "/* custom */")
	assert.NotContains(t, out.Model, "mtype")
}

func TestCompilePlan_Errors(t *testing.T) {
	svc := NewMissionService(template)
	_, _, err := svc.CompilePlan(context.Background(), nil, CompilePlanInput{})
	require.Error(t, err)

	_, _, err = svc.CompilePlan(context.Background(), nil, CompilePlanInput{
		PlanXML: `<root><BehaviorTree><Parallel><A name="x"/></Parallel></BehaviorTree></root>`,
	})
	var ce *compiler.CompilationError
	require.ErrorAs(t, err, &ce)
}

func TestCountPlanTasks(t *testing.T) {
	svc := NewMissionService(template)
	_, out, err := svc.CountPlanTasks(context.Background(), nil, CountPlanTasksInput{PlanXML: missionXML})
	require.NoError(t, err)
	assert.Equal(t, 6, out.Count)
	assert.Equal(t, []string{"goToTree1", "readTemp1", "co2Tree1", "thermalTree1"}, out.Actions)
}

func TestAlignMacros(t *testing.T) {
	svc := NewMissionService(template)
	_, out, err := svc.AlignMacros(context.Background(), nil, AlignMacrosInput{PlanXML: missionXML, Logic: missionLogic})
	require.NoError(t, err)
	require.Len(t, out.Macros, 5)
	assert.Equal(t, "#define move (goToTree1.action.actionType == MoveToGPSLocation)", out.Macros[0])
	assert.Equal(t, "#define cold (temp < 30)", out.Macros[2])
	assert.Equal(t, "#define thermal (thermalTree1.action.actionType == TakeThermalPicture)", out.Macros[4])
	assert.Equal(t, 4, out.Renamed)
	assert.Contains(t, out.Formula, "move && X")
}

func TestAlignMacros_MissingLogic(t *testing.T) {
	svc := NewMissionService(template)
	_, _, err := svc.AlignMacros(context.Background(), nil, AlignMacrosInput{PlanXML: missionXML})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logic is required")
}

func TestCheckConsistency(t *testing.T) {
	svc := NewMissionService(template, WithTranslator(fixedTranslator(6)))
	_, out, err := svc.CheckConsistency(context.Background(), nil, CheckConsistencyInput{PlanXML: missionXML, Logic: missionLogic})
	require.NoError(t, err)
	assert.True(t, out.Consistent)
	assert.Equal(t, 6, out.PlanTasks)
	assert.Equal(t, 6, out.LogicTransitions)
	assert.Empty(t, out.Feedback)

	svc = NewMissionService(template, WithTranslator(fixedTranslator(4)))
	_, out, err = svc.CheckConsistency(context.Background(), nil, CheckConsistencyInput{PlanXML: missionXML, Logic: missionLogic})
	require.NoError(t, err)
	assert.False(t, out.Consistent)
	assert.Equal(t, 4, out.LogicTransitions)
	assert.NotEmpty(t, out.Feedback)
}

func TestCheckConsistency_Unavailable(t *testing.T) {
	_, _, err := NewMissionService(template).CheckConsistency(context.Background(), nil, CheckConsistencyInput{})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestVerifyMission(t *testing.T) {
	v := &fakeVerifier{result: &verify.Result{
		Outcome:        verify.Violated,
		Counterexample: "step 3: temp = 31",
		ModelPath:      "/work/mission.pml",
		TrailPath:      "/work/mission.pml.trail",
	}}
	svc := NewMissionService(template, WithVerifier(v))
	_, out, err := svc.VerifyMission(context.Background(), nil, VerifyMissionInput{PlanXML: missionXML, Logic: missionLogic})
	require.NoError(t, err)
	assert.Equal(t, "violated", out.Outcome)
	assert.Equal(t, "step 3: temp = 31", out.Counterexample)
	assert.Equal(t, "/work/mission.pml.trail", out.TrailPath)

	require.Len(t, v.macros, 5)
	assert.Equal(t, "goToTree1.action.actionType == MoveToGPSLocation", v.macros[0].Expr, "macros are aligned before checking")
	assert.Contains(t, v.model.Source, "Task goToTree1;")
}

func TestVerifyMission_InfraError(t *testing.T) {
	svc := NewMissionService(template, WithVerifier(&fakeVerifier{err: errors.New("spin: not found")}))
	_, _, err := svc.VerifyMission(context.Background(), nil, VerifyMissionInput{PlanXML: missionXML, Logic: missionLogic})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spin: not found")
}

func TestRunMission(t *testing.T) {
	p := &fakePipeline{report: &orchestrator.Report{
		RunID:        "01JX",
		Outcome:      orchestrator.OutcomeSucceeded,
		Retries:      2,
		ArtifactPath: "logs/mission-01JX.xml",
		PlanText:     missionXML,
	}}
	svc := NewMissionService(template, WithPipeline(p))
	_, out, err := svc.RunMission(context.Background(), nil, RunMissionInput{Request: "survey"})
	require.NoError(t, err)
	assert.Equal(t, "survey", p.got)
	assert.Equal(t, "succeeded", out.Outcome)
	assert.Equal(t, 2, out.Retries)
	assert.Equal(t, missionXML, out.PlanXML)
}

// overlapPipeline tracks how many runs overlap.
type overlapPipeline struct {
	mu           sync.Mutex
	active, peak int
}

func (p *overlapPipeline) Run(_ context.Context, request string) (*orchestrator.Report, error) {
	p.mu.Lock()
	p.active++
	p.peak = max(p.peak, p.active)
	p.mu.Unlock()

	time.Sleep(20 * time.Millisecond)

	p.mu.Lock()
	p.active--
	p.mu.Unlock()
	return &orchestrator.Report{Request: request, Outcome: orchestrator.OutcomeSucceeded}, nil
}

func (p *overlapPipeline) Progress() <-chan orchestrator.ProgressEvent { return nil }

func TestRunMission_ConcurrentCallsRunOneAtATime(t *testing.T) {
	p := &overlapPipeline{}
	svc := NewMissionService(template, WithPipeline(p))

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, out, err := svc.RunMission(context.Background(), nil, RunMissionInput{Request: "survey"})
			assert.NoError(t, err)
			assert.Equal(t, "succeeded", out.Outcome)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, p.peak)
}

func TestRunMission_SerialHookRunsPerMission(t *testing.T) {
	resets := 0
	serial := orchestrator.NewSerial(&fakePipeline{report: &orchestrator.Report{Outcome: orchestrator.OutcomeSucceeded}},
		func() { resets++ })
	svc := NewMissionService(template, WithPipeline(serial))

	for range 2 {
		_, _, err := svc.RunMission(context.Background(), nil, RunMissionInput{Request: "survey"})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, resets)
}

func TestRunMission_FailedRunIsNotToolError(t *testing.T) {
	p := &fakePipeline{
		report: &orchestrator.Report{
			RunID:    "01JY",
			Outcome:  orchestrator.OutcomeFailed,
			Category: orchestrator.CategoryRetryBudgetExhausted,
			PlanText: missionXML,
		},
		err: &orchestrator.RetryBudgetExhausted{Retries: 5},
	}
	svc := NewMissionService(template, WithPipeline(p))
	_, out, err := svc.RunMission(context.Background(), nil, RunMissionInput{Request: "survey"})
	require.NoError(t, err)
	assert.Equal(t, "failed", out.Outcome)
	assert.Equal(t, "retry-budget-exhausted", out.Category)
	assert.NotEmpty(t, out.Message)
	assert.Empty(t, out.PlanXML, "failed runs do not return a plan")
}

func TestRunMission_EmptyRequest(t *testing.T) {
	svc := NewMissionService(template, WithPipeline(&fakePipeline{}))
	_, _, err := svc.RunMission(context.Background(), nil, RunMissionInput{})
	require.Error(t, err)
}

func TestListRuns(t *testing.T) {
	start := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	runs := &fakeRuns{reports: []*orchestrator.Report{
		{RunID: "b", Request: "two", Outcome: orchestrator.OutcomeSucceeded, StartedAt: start},
	}}
	svc := NewMissionService(template, WithRunLister(runs))
	_, out, err := svc.ListRuns(context.Background(), nil, ListRunsInput{})
	require.NoError(t, err)
	assert.Equal(t, 20, runs.limit)
	require.Len(t, out.Runs, 1)
	assert.Equal(t, "2026-04-01T12:00:00Z", out.Runs[0].StartedAt)
}
