package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dusk-indust/missionplan/internal/agent"
	"github.com/dusk-indust/missionplan/internal/automaton"
	"github.com/dusk-indust/missionplan/internal/compiler"
	"github.com/dusk-indust/missionplan/internal/ltl"
	"github.com/dusk-indust/missionplan/internal/plan"
	"github.com/dusk-indust/missionplan/internal/verify"
)

// Compile-time interface check.
var _ Orchestrator = (*Pipeline)(nil)

// Sampler draws example accepting runs from an automaton.
type Sampler interface {
	SampleRuns(a *automaton.Automaton, count int) ([]string, error)
}

// Pipeline is the mission controller: a bounded-retry state machine over
// the phases NeedPlan through NeedTrailCheck. One Pipeline runs one
// request at a time; callers serialize Run.
type Pipeline struct {
	cfg        Config
	planner    agent.Generator
	logic      agent.Generator
	arbiter    agent.Generator
	translator automaton.Translator
	verifier   Verifier
	sampler    Sampler
	sender     Sender
	recorder   Recorder
	progress   *ProgressReporter
	now        func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithArbiter sets the collaborator that reviews sampled runs.
func WithArbiter(g agent.Generator) Option {
	return func(p *Pipeline) { p.arbiter = g }
}

// WithTranslator sets the LTL-to-automaton translator.
func WithTranslator(t automaton.Translator) Option {
	return func(p *Pipeline) { p.translator = t }
}

// WithVerifier sets the model-checking driver.
func WithVerifier(v Verifier) Option {
	return func(p *Pipeline) { p.verifier = v }
}

// WithSampler replaces the default random sampler.
func WithSampler(s Sampler) Option {
	return func(p *Pipeline) { p.sampler = s }
}

// WithSender sets where accepted plans are delivered.
func WithSender(s Sender) Option {
	return func(p *Pipeline) { p.sender = s }
}

// WithRecorder sets the run ledger.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a controller around the plan and logic generators.
// Without a translator, verifier or logic generator it runs plan-only.
func NewPipeline(cfg Config, planner, logic agent.Generator, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      cfg.withDefaults(),
		planner:  planner,
		logic:    logic,
		sampler:  automaton.NewSampler(nil, 0),
		progress: NewProgressReporter(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cfg.Capability > CapPlanOnly && (p.logic == nil || p.translator == nil || p.verifier == nil) {
		log.Printf("WARNING: pipeline: logic generator, translator or verifier missing; running plan-only")
		p.cfg.Capability = CapPlanOnly
	}
	if p.cfg.Capability == CapFull && p.arbiter == nil {
		p.cfg.Capability = CapVerify
	}
	return p
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Progress returns a channel that emits progress events.
func (p *Pipeline) Progress() <-chan ProgressEvent {
	return p.progress.Subscribe()
}

// Close shuts down the progress reporter.
func (p *Pipeline) Close() {
	p.progress.Close()
}

// run is the mutable state of one request.
type run struct {
	state       State
	request     string
	report      *Report
	planPrompt  string
	logicPrompt string
	plan        *plan.Plan
	spec        *ltl.Spec
	aut         *automaton.Automaton
	result      *verify.Result
	last        error
}

// Run drives request through the phases until Done or Failed.
//
// Recoverable errors increment the shared retry counter and send the run
// back to the phase their generator owns, with the error folded into its
// next prompt. The counter is checked at the top of every iteration; once
// it reaches MaxRetries the run fails with *RetryBudgetExhausted whatever
// phase it was in. *CompilationError and infrastructure errors fail the
// run at once.
func (p *Pipeline) Run(ctx context.Context, request string) (*Report, error) {
	r := &run{
		state:       State{Phase: NeedPlan, MaxRetries: p.cfg.MaxRetries},
		request:     request,
		planPrompt:  planRequestPrompt(request),
		logicPrompt: logicRequestPrompt(request),
		report: &Report{
			RunID:      ulid.Make().String(),
			Request:    request,
			Capability: p.cfg.Capability,
			StartedAt:  p.now(),
		},
	}
	log.Printf("pipeline: run %s started (capability=%s, maxRetries=%d)", r.report.RunID, p.cfg.Capability, r.state.MaxRetries)

	for {
		if r.state.Phase == Done {
			return p.finish(ctx, r)
		}
		if r.state.RetryCount >= r.state.MaxRetries {
			return p.fail(ctx, r, &RetryBudgetExhausted{Retries: r.state.RetryCount, Last: r.last})
		}
		if err := ctx.Err(); err != nil {
			return p.fail(ctx, r, fmt.Errorf("pipeline: %w", err))
		}

		phase := r.state.Phase
		p.emit(r, phase, ProgressWorking, "")
		next, msg, err := p.step(ctx, r)
		if err == nil {
			p.emit(r, phase, ProgressComplete, msg)
			if err := p.advance(r, next, false); err != nil {
				return p.fail(ctx, r, err)
			}
			continue
		}

		var rec Recoverable
		if errors.As(err, &rec) {
			if err := p.retry(r, phase, rec); err != nil {
				return p.fail(ctx, r, err)
			}
			continue
		}
		p.emit(r, phase, ProgressFailed, err.Error())
		return p.fail(ctx, r, err)
	}
}

func (p *Pipeline) step(ctx context.Context, r *run) (Phase, string, error) {
	switch r.state.Phase {
	case NeedPlan:
		return p.needPlan(ctx, r)
	case NeedLogic:
		return p.needLogic(ctx, r)
	case NeedConsistency:
		return p.needConsistency(r)
	case NeedVerification:
		return p.needVerification(ctx, r)
	case NeedArbitration:
		return p.needArbitration(ctx, r)
	case NeedTrailCheck:
		return p.needTrailCheck(r)
	default:
		return 0, "", fmt.Errorf("pipeline: no step for phase %s", r.state.Phase)
	}
}

// ---------- phases ----------

func (p *Pipeline) needPlan(ctx context.Context, r *run) (Phase, string, error) {
	reply, err := p.planner.Request(ctx, r.planPrompt)
	if err != nil {
		return 0, "", generationFailure(ctx, NeedPlan, err)
	}
	text, err := agent.ExtractBlock(reply, PlanLang)
	if err != nil {
		return 0, "", &GenerationError{Phase: NeedPlan, Err: err}
	}
	pl, err := plan.ParseXML([]byte(text))
	if err != nil {
		var unknown *plan.UnknownNodeKindError
		if errors.As(err, &unknown) {
			return 0, "", &CompilationError{Err: err}
		}
		return 0, "", &GenerationError{Phase: NeedPlan, Err: err}
	}

	r.plan = pl
	r.state.LastPlanText = text
	r.state.PlanTaskCount = plan.CountTasks(pl)
	msg := fmt.Sprintf("%d tasks", r.state.PlanTaskCount)

	switch {
	case p.cfg.Capability == CapPlanOnly:
		return Done, msg + ", unverified", nil
	case r.spec == nil:
		return NeedLogic, msg, nil
	default:
		return NeedConsistency, msg, nil
	}
}

func (p *Pipeline) needLogic(ctx context.Context, r *run) (Phase, string, error) {
	reply, err := p.logic.Request(ctx, r.logicPrompt)
	if err != nil {
		return 0, "", generationFailure(ctx, NeedLogic, err)
	}
	text, err := agent.ExtractBlock(reply, LogicLang)
	if err != nil {
		return 0, "", &GenerationError{Phase: NeedLogic, Err: err}
	}
	spec, err := ltl.Parse(text)
	if err != nil {
		return 0, "", &GenerationError{Phase: NeedLogic, Err: err}
	}
	aut, err := p.translator.Translate(ctx, spec.Formula)
	if err != nil {
		var rejected *automaton.TranslateError
		if errors.As(err, &rejected) {
			return 0, "", &GenerationError{Phase: NeedLogic, Err: err}
		}
		return 0, "", fmt.Errorf("pipeline: translate: %w", err)
	}

	r.spec, r.aut = spec, aut
	r.state.LastLogicText = text
	r.state.LogicTaskCount = automaton.CountTransitions(aut)
	return NeedConsistency, fmt.Sprintf("%d transitions", r.state.LogicTaskCount), nil
}

func (p *Pipeline) needConsistency(r *run) (Phase, string, error) {
	if err := compareCounts(r.state.PlanTaskCount, r.state.LogicTaskCount); err != nil {
		return 0, "", err
	}
	return NeedVerification, fmt.Sprintf("%d tasks", r.state.PlanTaskCount), nil
}

func (p *Pipeline) needVerification(ctx context.Context, r *run) (Phase, string, error) {
	model, cat, err := compiler.Compile(r.plan, p.cfg.Template)
	if err != nil {
		return 0, "", &CompilationError{Err: err}
	}
	macros := ltl.Align(cat, r.spec.Macros)

	res, err := p.verifier.Verify(ctx, model, macros, r.spec.Formula)
	if err != nil {
		return 0, "", fmt.Errorf("pipeline: verify: %w", err)
	}
	r.report.ModelPath = res.ModelPath
	if res.Outcome == verify.SetupFailed {
		return 0, "", &VerificationSetupError{Output: res.Counterexample}
	}
	r.result = res
	return NeedArbitration, string(res.Outcome), nil
}

func (p *Pipeline) needArbitration(ctx context.Context, r *run) (Phase, string, error) {
	if p.arbiter == nil || p.cfg.Capability < CapFull {
		return NeedTrailCheck, "skipped", nil
	}

	runs, err := p.sampler.SampleRuns(r.aut, p.cfg.SampleRuns)
	if err != nil {
		var deadlock *automaton.SamplerDeadlockError
		if errors.As(err, &deadlock) {
			return 0, "", &GenerationError{Phase: NeedLogic, Err: err}
		}
		return 0, "", fmt.Errorf("pipeline: sample runs: %w", err)
	}
	r.report.SampledRuns = runs

	reply, err := p.arbiter.Request(ctx, arbiterPrompt(r.request, runs))
	if err != nil {
		return 0, "", generationFailure(ctx, NeedArbitration, err)
	}
	verdict := agent.ParseVerdict(reply)
	if !verdict.Accepted {
		return 0, "", &ArbitrationRejection{Explanation: verdict.Explanation}
	}
	return NeedTrailCheck, "accepted", nil
}

// needTrailCheck acts on the verification outcome only now, after the
// logic has been reviewed, so a counterexample is blamed on the plan.
func (p *Pipeline) needTrailCheck(r *run) (Phase, string, error) {
	if r.result != nil && r.result.Outcome == verify.Violated {
		return 0, "", &VerificationViolation{
			Counterexample: r.result.Counterexample,
			TrailPath:      r.result.TrailPath,
		}
	}
	return Done, "no counterexample", nil
}

// generationFailure turns a collaborator error into a recoverable
// generation error unless the run itself was cancelled.
func generationFailure(ctx context.Context, phase Phase, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("pipeline: %s: %w", phase, err)
	}
	return &GenerationError{Phase: phase, Err: err}
}

// ---------- transitions ----------

func (p *Pipeline) advance(r *run, to Phase, retry bool) error {
	from := r.state.Phase
	if err := checkTransition(from, to, retry); err != nil {
		return err
	}
	log.Printf("pipeline: %s: %s -> %s", r.report.RunID, from, to)
	r.state.Phase = to
	return nil
}

func (p *Pipeline) retry(r *run, phase Phase, rec Recoverable) error {
	r.state.RetryCount++
	r.last = rec
	to := rec.RetryPhase()
	log.Printf("pipeline: %s: retry %d/%d: %s in %s: %v",
		r.report.RunID, r.state.RetryCount, r.state.MaxRetries, rec.Category(), phase, rec)

	r.report.Attempts = append(r.report.Attempts, Attempt{
		Phase:    phase,
		Category: rec.Category(),
		Message:  rec.Error(),
		RetryTo:  to,
	})
	switch to {
	case NeedPlan:
		r.planPrompt = retryPrompt(NeedPlan, rec.Feedback())
		r.result = nil
	case NeedLogic:
		r.logicPrompt = retryPrompt(NeedLogic, rec.Feedback())
		r.result = nil
	}
	p.emit(r, phase, ProgressRetrying, string(rec.Category()))
	return p.advance(r, to, true)
}

// ---------- termination ----------

func (p *Pipeline) finish(ctx context.Context, r *run) (*Report, error) {
	path, err := p.writeArtifact(r)
	if err != nil {
		return p.fail(ctx, r, err)
	}
	r.report.ArtifactPath = path
	log.Printf("pipeline: %s: plan written to %s", r.report.RunID, path)

	if p.sender != nil {
		if err := p.sender.Send(ctx, path); err != nil {
			log.Printf("WARNING: pipeline: %s: transport: %v", r.report.RunID, err)
			r.report.TransportError = err.Error()
		}
	}

	r.report.Outcome = OutcomeSucceeded
	p.snapshot(r)
	p.emit(r, Done, ProgressComplete, path)
	p.record(ctx, r)
	return r.report, nil
}

func (p *Pipeline) fail(ctx context.Context, r *run, err error) (*Report, error) {
	from := r.state.Phase
	r.state.Phase = Failed
	r.report.Outcome = OutcomeFailed
	r.report.Category = CategoryOf(err)
	r.report.Error = err.Error()
	p.snapshot(r)
	log.Printf("pipeline: %s: failed in %s: %v", r.report.RunID, from, err)
	p.emit(r, Failed, ProgressFailed, string(r.report.Category))
	p.record(ctx, r)
	return r.report, err
}

// writeArtifact stores the accepted plan as a fresh file in the log
// directory.
func (p *Pipeline) writeArtifact(r *run) (string, error) {
	if err := os.MkdirAll(p.cfg.LogDirectory, 0o755); err != nil {
		return "", fmt.Errorf("pipeline: create log directory: %w", err)
	}
	path := filepath.Join(p.cfg.LogDirectory, "mission-"+r.report.RunID+".xml")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("pipeline: create artifact: %w", err)
	}
	if _, err := f.WriteString(r.state.LastPlanText + "\n"); err != nil {
		f.Close()
		return "", fmt.Errorf("pipeline: write artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("pipeline: close artifact: %w", err)
	}
	return path, nil
}

func (p *Pipeline) snapshot(r *run) {
	rep := r.report
	rep.FinalPhase = r.state.Phase
	rep.Retries = r.state.RetryCount
	rep.PlanText = r.state.LastPlanText
	rep.LogicText = r.state.LastLogicText
	rep.PlanTasks = r.state.PlanTaskCount
	rep.LogicTransitions = r.state.LogicTaskCount
	if r.result != nil {
		rep.Verification = string(r.result.Outcome)
		rep.TrailPath = r.result.TrailPath
	}
	rep.FinishedAt = p.now()
}

func (p *Pipeline) record(ctx context.Context, r *run) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Record(context.WithoutCancel(ctx), r.report); err != nil {
		log.Printf("WARNING: pipeline: %s: record run: %v", r.report.RunID, err)
	}
}

func (p *Pipeline) emit(r *run, phase Phase, status ProgressStatus, msg string) {
	p.progress.Emit(ProgressEvent{
		Phase:   phase,
		Attempt: r.state.RetryCount,
		Status:  status,
		Message: msg,
	})
}
