package a2a

import "context"

// Client sends messages to remote agents.
type Client interface {
	// SendMessage sends a message and returns the resulting task. With
	// Blocking set, the task is terminal when returned.
	SendMessage(ctx context.Context, endpoint string, req SendMessageRequest) (*Task, error)

	// GetTask retrieves a task by ID.
	GetTask(ctx context.Context, endpoint string, req GetTaskRequest) (*Task, error)

	// CancelTask cancels a running task.
	CancelTask(ctx context.Context, endpoint string, req CancelTaskRequest) (*Task, error)

	// DiscoverAgent fetches the Agent Card from the well-known URI.
	DiscoverAgent(ctx context.Context, baseURL string) (*AgentCard, error)
}
