// Package a2a implements the subset of the Agent2Agent JSON-RPC protocol
// the mission planner speaks: it calls generator and arbiter agents as a
// client, and exposes the planning pipeline itself as an agent.
package a2a

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskState is the lifecycle state of an A2A task.
type TaskState string

const (
	TaskStateSubmitted TaskState = "submitted"
	TaskStateWorking   TaskState = "working"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
	TaskStateCanceled  TaskState = "canceled"
	TaskStateRejected  TaskState = "rejected"
)

// IsTerminal returns true if the task state is a final state.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled, TaskStateRejected:
		return true
	}
	return false
}

// Role identifies the sender of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Task is the unit of work an agent performs for one message.
type Task struct {
	ID        string     `json:"id"`
	ContextID string     `json:"contextId"`
	Status    TaskStatus `json:"status"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// TaskStatus tracks the current state and when it changed.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Message is one turn of a conversation. Messages sharing a ContextID
// belong to the same conversation.
type Message struct {
	MessageID string `json:"messageId"`
	ContextID string `json:"contextId,omitempty"`
	TaskID    string `json:"taskId,omitempty"`
	Role      Role   `json:"role"`
	Parts     []Part `json:"parts"`
}

// Part carries text content within a message or artifact.
type Part struct {
	Text      string `json:"text,omitempty"`
	Filename  string `json:"filename,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
}

// TextPart creates a Part with text content.
func TextPart(text string) Part {
	return Part{Text: text, MediaType: "text/plain"}
}

// Artifact is an output produced by an agent for a task.
type Artifact struct {
	ArtifactID  string `json:"artifactId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parts       []Part `json:"parts"`
}

// AgentCard is the self-describing manifest served at
// /.well-known/agent-card.json.
type AgentCard struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Version     string       `json:"version"`
	URL         string       `json:"url,omitempty"`
	Skills      []AgentSkill `json:"skills"`
}

// AgentSkill declares a distinct capability of an agent.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

// SendMessageRequest initiates a task. Blocking asks the agent to reply
// only once the task is terminal.
type SendMessageRequest struct {
	Message  Message `json:"message"`
	Blocking bool    `json:"blocking"`
}

// GetTaskRequest retrieves a task by ID.
type GetTaskRequest struct {
	ID string `json:"id"`
}

// CancelTaskRequest cancels a running task.
type CancelTaskRequest struct {
	ID string `json:"id"`
}

// NewID returns a fresh random identifier for tasks, messages, artifacts
// and conversation contexts.
func NewID() string {
	return uuid.NewString()
}

// NewUserMessage builds a single-part user message in the given context.
func NewUserMessage(contextID, text string) Message {
	return Message{
		MessageID: NewID(),
		ContextID: contextID,
		Role:      RoleUser,
		Parts:     []Part{TextPart(text)},
	}
}

// Text concatenates the text parts of a message.
func (m Message) Text() string {
	return joinText(m.Parts)
}

// ArtifactText concatenates the text of every artifact part, artifacts
// separated by blank lines.
func (t *Task) ArtifactText() string {
	var chunks []string
	for _, a := range t.Artifacts {
		if s := joinText(a.Parts); s != "" {
			chunks = append(chunks, s)
		}
	}
	return strings.Join(chunks, "\n\n")
}

func joinText(parts []Part) string {
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}
