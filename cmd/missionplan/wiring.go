package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/dusk-indust/missionplan/internal/a2a"
	"github.com/dusk-indust/missionplan/internal/agent"
	"github.com/dusk-indust/missionplan/internal/automaton"
	"github.com/dusk-indust/missionplan/internal/config"
	"github.com/dusk-indust/missionplan/internal/graph"
	"github.com/dusk-indust/missionplan/internal/history"
	"github.com/dusk-indust/missionplan/internal/orchestrator"
	"github.com/dusk-indust/missionplan/internal/promptdata"
	"github.com/dusk-indust/missionplan/internal/runner"
	"github.com/dusk-indust/missionplan/internal/transport"
	"github.com/dusk-indust/missionplan/internal/verify"
)

// wired holds the components built from the configuration.
type wired struct {
	pipeline   *orchestrator.Pipeline
	missions   *orchestrator.Serial
	registry   *agent.Registry
	history    *history.Store
	translator automaton.Translator
	verifier   *verify.Driver
	template   string
	capability orchestrator.CapabilityLevel
	missing    []string
	closers    []io.Closer
}

func (w *wired) Close() {
	if w.pipeline != nil {
		w.pipeline.Close()
	}
	for i := len(w.closers) - 1; i >= 0; i-- {
		if err := w.closers[i].Close(); err != nil {
			log.Printf("WARNING: close: %v", err)
		}
	}
}

// template returns the configured Promela template, or the embedded one.
func (a *app) template() (string, error) {
	path := a.cfg.Verification.TemplatePath
	if path == "" {
		return promptdata.Template(), nil
	}
	data, err := os.ReadFile(a.cfg.Resolve(path))
	if err != nil {
		return "", fmt.Errorf("read template: %w", err)
	}
	return string(data), nil
}

// collaborators registers the plan, logic and arbiter generators.
// The console arbiter talks to in and out.
func (a *app) collaborators(client a2a.Client, template string, in io.Reader, out io.Writer) *agent.Registry {
	reg := agent.NewRegistry()
	remote := func(endpoint, preamble string) agent.GeneratorFactory {
		return func() (agent.Generator, error) {
			return agent.NewA2AGenerator(client, endpoint, agent.NewConversation(preamble)), nil
		}
	}
	if a.cfg.Planner != "" {
		reg.Register(agent.RolePlanner, remote(a.cfg.Planner, promptdata.PlannerPreamble()))
	}
	if a.cfg.Logic != "" {
		reg.Register(agent.RoleLogic, remote(a.cfg.Logic, promptdata.LogicPreamble(template)))
	}
	switch a.cfg.Arbiter {
	case "":
	case config.ConsoleArbiter:
		reg.Register(agent.RoleArbiter, func() (agent.Generator, error) {
			return agent.NewConsoleArbiter(in, out), nil
		})
	default:
		reg.Register(agent.RoleArbiter, remote(a.cfg.Arbiter, promptdata.ArbiterPreamble()))
	}
	return reg
}

// detect decides how much of the pipeline can run.
func (a *app) detect(ctx context.Context, client a2a.Client) (orchestrator.CapabilityLevel, []string) {
	v := a.cfg.Verification
	if !v.IsEnabled() {
		log.Printf("verification disabled in configuration; running plan-only")
		return orchestrator.CapPlanOnly, nil
	}
	if a.cfg.Logic == "" {
		log.Printf("WARNING: no logic generator configured; running plan-only")
		return orchestrator.CapPlanOnly, []string{"logic"}
	}
	det := orchestrator.NewDefaultDetector(client, v.SpinPath, v.TranslatorPath, a.cfg.Arbiter)
	level, missing, err := det.Detect(ctx)
	if err != nil {
		log.Printf("WARNING: capability detection failed: %v; running plan-only", err)
		return orchestrator.CapPlanOnly, missing
	}
	return level, missing
}

// wire builds the pipeline and everything it depends on.
func (a *app) wire(ctx context.Context, in io.Reader, out io.Writer) (*wired, error) {
	if a.cfg.Planner == "" {
		return nil, errors.New("no planner endpoint configured; set planner in missionplan.yml")
	}
	template, err := a.template()
	if err != nil {
		return nil, err
	}

	client := a2a.NewHTTPClient(a2a.WithBearerToken(a.cfg.Token()))
	w := &wired{template: template}
	w.registry = a.collaborators(client, template, in, out)
	w.capability, w.missing = a.detect(ctx, client)

	planner, err := w.registry.Generator(agent.RolePlanner)
	if err != nil {
		return nil, err
	}
	var logic agent.Generator
	if w.registry.Has(agent.RoleLogic) {
		if logic, err = w.registry.Generator(agent.RoleLogic); err != nil {
			return nil, err
		}
	}

	var opts []orchestrator.Option
	if w.capability > orchestrator.CapPlanOnly {
		v := a.cfg.Verification
		store, err := openAutomatonStore(ctx, a.cfg.AutomatonStore())
		if err != nil {
			w.Close()
			return nil, err
		}
		w.closers = append(w.closers, store)
		w.translator = graph.NewCachingTranslator(automaton.NewExecTranslator(v.TranslatorPath, runner.NewOSRunner()), store)
		w.verifier = verify.New(a.cfg.WorkDir(), verify.WithCheckerPath(v.SpinPath))
		opts = append(opts,
			orchestrator.WithTranslator(w.translator),
			orchestrator.WithVerifier(w.verifier),
			orchestrator.WithSampler(automaton.NewSampler(nil, v.MaxWalkSteps)),
		)
		if w.registry.Has(agent.RoleArbiter) {
			arbiter, err := w.registry.Generator(agent.RoleArbiter)
			if err != nil {
				w.Close()
				return nil, err
			}
			opts = append(opts, orchestrator.WithArbiter(arbiter))
		}
	}

	if t := a.cfg.Transport; t.Enabled {
		opts = append(opts, orchestrator.WithSender(transport.NewTCPSender(t.Host, t.Port, 10*time.Second)))
	}

	if h, err := history.Open(a.cfg.History()); err != nil {
		log.Printf("WARNING: run history unavailable: %v", err)
	} else {
		w.history = h
		w.closers = append(w.closers, h)
		opts = append(opts, orchestrator.WithRecorder(h))
	}

	w.pipeline = orchestrator.NewPipeline(orchestrator.Config{
		MaxRetries:   a.cfg.MaxRetries,
		LogDirectory: a.cfg.LogDir(),
		Template:     template,
		SampleRuns:   a.cfg.Verification.SampleRuns,
		Capability:   w.capability,
	}, planner, logic, opts...)
	w.missions = orchestrator.NewSerial(w.pipeline, w.registry.ResetConversations)
	return w, nil
}

// missionFunc adapts the serialized pipeline to the mission agent.
func (w *wired) missionFunc() agent.MissionFunc {
	return func(ctx context.Context, request string) (*agent.MissionOutcome, error) {
		rep, err := w.missions.Run(ctx, request)
		if err != nil {
			return nil, err
		}
		return &agent.MissionOutcome{PlanXML: rep.PlanText, ArtifactPath: rep.ArtifactPath}, nil
	}
}
