package agent

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dusk-indust/missionplan/internal/a2a"
)

// Compile-time interface checks.
var (
	_ Agent       = (*BaseAgent)(nil)
	_ a2a.Handler = (*BaseAgent)(nil)
)

// DefaultTaskLimit bounds how many finished tasks a BaseAgent remembers.
const DefaultTaskLimit = 256

// ProcessFunc handles one incoming message. It receives the task in the
// working state and returns the artifacts for the completed task.
type ProcessFunc func(ctx context.Context, task *a2a.Task, msg a2a.Message) ([]a2a.Artifact, error)

// BaseAgent composes an A2A server and task store around a ProcessFunc.
type BaseAgent struct {
	server  *a2a.Server
	store   *a2a.TaskStore
	card    a2a.AgentCard
	process ProcessFunc

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewBaseAgent creates a BaseAgent with the given card and process function.
func NewBaseAgent(card a2a.AgentCard, process ProcessFunc, opts ...a2a.ServerOption) *BaseAgent {
	b := &BaseAgent{
		store:   a2a.NewTaskStore(DefaultTaskLimit),
		card:    card,
		process: process,
		cancels: make(map[string]context.CancelFunc),
	}
	b.server = a2a.NewServer(card, b, opts...)
	return b
}

// Card returns the agent's A2A Agent Card.
func (b *BaseAgent) Card() a2a.AgentCard {
	return b.card
}

// Routes exposes the agent's HTTP handler.
func (b *BaseAgent) Routes() http.Handler {
	return b.server.Routes()
}

// Serve runs the agent's HTTP server on addr until ctx is cancelled.
func (b *BaseAgent) Serve(ctx context.Context, addr string) error {
	return b.server.ListenAndServe(ctx, addr)
}

// HandleTask runs the process function for task and records each state
// transition in the store. A cancelled task stays cancelled.
func (b *BaseAgent) HandleTask(ctx context.Context, task a2a.Task, msg a2a.Message) (*a2a.Task, error) {
	task.Status = a2a.TaskStatus{State: a2a.TaskStateWorking, Timestamp: time.Now()}
	if err := b.store.Create(task); err != nil {
		return nil, fmt.Errorf("agent: create task: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancels[task.ID] = cancel
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.cancels, task.ID)
		b.mu.Unlock()
		cancel()
	}()

	artifacts, err := b.process(ctx, &task, msg)
	return b.store.Update(task.ID, func(t *a2a.Task) {
		if t.Status.State.IsTerminal() {
			return
		}
		if err != nil {
			t.Status = a2a.TaskStatus{
				State:     a2a.TaskStateFailed,
				Timestamp: time.Now(),
				Message: &a2a.Message{
					MessageID: a2a.NewID(),
					ContextID: t.ContextID,
					Role:      a2a.RoleAgent,
					Parts:     []a2a.Part{a2a.TextPart(err.Error())},
				},
			}
			return
		}
		t.Status = a2a.TaskStatus{State: a2a.TaskStateCompleted, Timestamp: time.Now()}
		t.Artifacts = artifacts
	})
}

// ---------- a2a.Handler ----------

// HandleSendMessage creates a task from the incoming message and
// processes it to completion.
func (b *BaseAgent) HandleSendMessage(ctx context.Context, req a2a.SendMessageRequest) (*a2a.Task, error) {
	contextID := req.Message.ContextID
	if contextID == "" {
		contextID = a2a.NewID()
	}
	return b.HandleTask(ctx, a2a.Task{ID: a2a.NewID(), ContextID: contextID}, req.Message)
}

// HandleGetTask retrieves a task by ID from the store.
func (b *BaseAgent) HandleGetTask(_ context.Context, req a2a.GetTaskRequest) (*a2a.Task, error) {
	return b.store.Get(req.ID)
}

// HandleCancelTask cancels a task that has not yet reached a terminal state.
func (b *BaseAgent) HandleCancelTask(_ context.Context, req a2a.CancelTaskRequest) (*a2a.Task, error) {
	task, err := b.store.Update(req.ID, func(t *a2a.Task) {
		if !t.Status.State.IsTerminal() {
			t.Status = a2a.TaskStatus{State: a2a.TaskStateCanceled, Timestamp: time.Now()}
		}
	})
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	if cancel, ok := b.cancels[req.ID]; ok {
		cancel()
	}
	b.mu.Unlock()
	return task, nil
}
