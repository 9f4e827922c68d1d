package agent

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/missionplan/internal/a2a"
)

func testCard() a2a.AgentCard {
	return a2a.AgentCard{
		Name:        "test-agent",
		Description: "A test agent",
		Version:     "0.1.0",
		Skills:      []a2a.AgentSkill{{ID: "echo", Name: "Echo", Description: "Echoes the input back"}},
	}
}

// echoProcess replies with the incoming text wrapped in a fenced block.
func echoProcess() ProcessFunc {
	return func(_ context.Context, _ *a2a.Task, msg a2a.Message) ([]a2a.Artifact, error) {
		return []a2a.Artifact{{
			ArtifactID: "art-1",
			Name:       "output",
			Parts:      []a2a.Part{a2a.TextPart("echo: " + msg.Text())},
		}}, nil
	}
}

func failProcess() ProcessFunc {
	return func(context.Context, *a2a.Task, a2a.Message) ([]a2a.Artifact, error) {
		return nil, errors.New("processing failed")
	}
}

func TestBaseAgent_HandleTask_Completes(t *testing.T) {
	b := NewBaseAgent(testCard(), echoProcess())

	task, err := b.HandleTask(context.Background(), a2a.Task{ID: "t1", ContextID: "c1"}, a2a.NewUserMessage("c1", "hi"))
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCompleted, task.Status.State)
	assert.Equal(t, "echo: hi", task.ArtifactText())

	stored, err := b.HandleGetTask(context.Background(), a2a.GetTaskRequest{ID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCompleted, stored.Status.State)
}

func TestBaseAgent_HandleTask_FailureRecordedOnTask(t *testing.T) {
	b := NewBaseAgent(testCard(), failProcess())

	task, err := b.HandleTask(context.Background(), a2a.Task{ID: "t1"}, a2a.NewUserMessage("", "hi"))
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateFailed, task.Status.State)
	require.NotNil(t, task.Status.Message)
	assert.Equal(t, "processing failed", task.Status.Message.Text())
}

func TestBaseAgent_HandleTask_DuplicateID(t *testing.T) {
	b := NewBaseAgent(testCard(), echoProcess())
	_, err := b.HandleTask(context.Background(), a2a.Task{ID: "t1"}, a2a.NewUserMessage("", "a"))
	require.NoError(t, err)

	_, err = b.HandleTask(context.Background(), a2a.Task{ID: "t1"}, a2a.NewUserMessage("", "b"))
	require.Error(t, err)
}

func TestBaseAgent_SendMessage_AssignsContext(t *testing.T) {
	b := NewBaseAgent(testCard(), echoProcess())
	task, err := b.HandleSendMessage(context.Background(), a2a.SendMessageRequest{Message: a2a.NewUserMessage("", "x")})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.NotEmpty(t, task.ContextID)
}

func TestBaseAgent_Cancel_RunningTaskStaysCanceled(t *testing.T) {
	started := make(chan string, 1)
	var b *BaseAgent
	b = NewBaseAgent(testCard(), func(ctx context.Context, task *a2a.Task, _ a2a.Message) ([]a2a.Artifact, error) {
		started <- task.ID
		<-ctx.Done()
		return nil, ctx.Err()
	})

	done := make(chan *a2a.Task, 1)
	go func() {
		task, _ := b.HandleTask(context.Background(), a2a.Task{ID: "t1"}, a2a.NewUserMessage("", "x"))
		done <- task
	}()

	id := <-started
	canceled, err := b.HandleCancelTask(context.Background(), a2a.CancelTaskRequest{ID: id})
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCanceled, canceled.Status.State)

	final := <-done
	assert.Equal(t, a2a.TaskStateCanceled, final.Status.State)
}

func TestBaseAgent_Cancel_UnknownTask(t *testing.T) {
	b := NewBaseAgent(testCard(), echoProcess())
	_, err := b.HandleCancelTask(context.Background(), a2a.CancelTaskRequest{ID: "nope"})
	require.ErrorIs(t, err, a2a.ErrTaskNotFound)
}

func TestBaseAgent_ServesCardOverHTTP(t *testing.T) {
	b := NewBaseAgent(testCard(), echoProcess())
	srv := httptest.NewServer(b.Routes())
	defer srv.Close()

	card, err := a2a.NewHTTPClient().DiscoverAgent(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "test-agent", card.Name)
}
