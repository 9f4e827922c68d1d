package agent

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/semaphore"

	"github.com/dusk-indust/missionplan/internal/a2a"
)

// MissionOutcome is what one pipeline run hands back to the mission agent.
type MissionOutcome struct {
	PlanXML      string
	ArtifactPath string
}

// MissionFunc runs the pipeline for one natural-language mission request.
type MissionFunc func(ctx context.Context, request string) (*MissionOutcome, error)

// MissionAgent serves the mission pipeline over A2A. Requests are run one
// at a time.
type MissionAgent struct {
	*BaseAgent
	run MissionFunc
	sem *semaphore.Weighted
}

// MissionCard describes the mission agent.
func MissionCard(version string) a2a.AgentCard {
	return a2a.AgentCard{
		Name:        "missionplan",
		Description: "Plans robot missions and model-checks the plan against a temporal-logic specification before release.",
		Version:     version,
		Skills: []a2a.AgentSkill{
			{
				ID:          "plan-mission",
				Name:        "Plan mission",
				Description: "Turns a mission request into a verified behavior-tree plan.",
				Tags:        []string{"planning", "verification", "spin", "ltl"},
				Examples:    []string{"Go to the north field, take a temperature reading and photograph any hot spot."},
			},
		},
	}
}

// NewMissionAgent wraps run in an A2A agent.
func NewMissionAgent(version string, run MissionFunc, opts ...a2a.ServerOption) *MissionAgent {
	m := &MissionAgent{run: run, sem: semaphore.NewWeighted(1)}
	m.BaseAgent = NewBaseAgent(MissionCard(version), m.process, opts...)
	return m
}

func (m *MissionAgent) process(ctx context.Context, _ *a2a.Task, msg a2a.Message) ([]a2a.Artifact, error) {
	request := strings.TrimSpace(msg.Text())
	if request == "" {
		return nil, errors.New("mission: empty request")
	}

	if err := m.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("mission: wait for pipeline: %w", err)
	}
	defer m.sem.Release(1)

	out, err := m.run(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("mission: %w", err)
	}

	part := a2a.Part{Text: out.PlanXML, MediaType: "application/xml"}
	if out.ArtifactPath != "" {
		part.Filename = filepath.Base(out.ArtifactPath)
	}
	return []a2a.Artifact{{
		ArtifactID:  a2a.NewID(),
		Name:        "mission-plan",
		Description: out.ArtifactPath,
		Parts:       []a2a.Part{part},
	}}, nil
}
