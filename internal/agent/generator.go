package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/missionplan/internal/a2a"
)

// Compile-time interface check.
var _ Generator = (*A2AGenerator)(nil)

// A2AGenerator is a Generator backed by a remote A2A agent. Turns share
// the conversation's context ID so the remote side keeps history.
type A2AGenerator struct {
	client   a2a.Client
	endpoint string
	conv     *Conversation
}

// NewA2AGenerator creates a generator that talks to endpoint.
func NewA2AGenerator(client a2a.Client, endpoint string, conv *Conversation) *A2AGenerator {
	if conv == nil {
		conv = NewConversation("")
	}
	return &A2AGenerator{client: client, endpoint: endpoint, conv: conv}
}

// Conversation returns the generator's dialogue state.
func (g *A2AGenerator) Conversation() *Conversation {
	return g.conv
}

// Request sends prompt as a blocking message and returns the reply text.
func (g *A2AGenerator) Request(ctx context.Context, prompt string) (string, error) {
	contextID, text := g.conv.next(prompt)
	task, err := g.client.SendMessage(ctx, g.endpoint, a2a.SendMessageRequest{
		Message:  a2a.NewUserMessage(contextID, text),
		Blocking: true,
	})
	if err != nil {
		return "", fmt.Errorf("agent: request %s: %w", g.endpoint, err)
	}

	switch task.Status.State {
	case a2a.TaskStateCompleted:
	case a2a.TaskStateFailed, a2a.TaskStateRejected, a2a.TaskStateCanceled:
		reason := string(task.Status.State)
		if task.Status.Message != nil {
			reason += ": " + task.Status.Message.Text()
		}
		return "", fmt.Errorf("agent: request %s: task %s %s", g.endpoint, task.ID, reason)
	default:
		return "", fmt.Errorf("agent: request %s: task %s not finished (%s)", g.endpoint, task.ID, task.Status.State)
	}

	reply := task.ArtifactText()
	if strings.TrimSpace(reply) == "" && task.Status.Message != nil {
		reply = task.Status.Message.Text()
	}
	if strings.TrimSpace(reply) == "" {
		return "", fmt.Errorf("agent: request %s: empty reply", g.endpoint)
	}
	return reply, nil
}
