// Package agent holds the collaborators the mission pipeline talks to:
// plan and logic generators, the arbiter, and the agent that serves the
// pipeline itself over A2A.
package agent

import (
	"context"

	"github.com/dusk-indust/missionplan/internal/a2a"
)

// Generator is a text-generation collaborator. Each call is one blocking
// request/response turn; conversational state lives in the implementation.
type Generator interface {
	Request(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Request calls f.
func (f GeneratorFunc) Request(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Agent is an A2A agent served by this process.
type Agent interface {
	// Card returns the agent's A2A Agent Card.
	Card() a2a.AgentCard

	// HandleTask processes an A2A task and returns the completed task.
	HandleTask(ctx context.Context, task a2a.Task, msg a2a.Message) (*a2a.Task, error)

	// Serve runs the agent's HTTP server on addr until ctx is cancelled.
	Serve(ctx context.Context, addr string) error
}

// Role identifies a collaborator.
type Role string

const (
	RolePlanner Role = "planner"
	RoleLogic   Role = "logic"
	RoleArbiter Role = "arbiter"
)
