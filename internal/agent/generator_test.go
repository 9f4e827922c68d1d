package agent

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/missionplan/internal/a2a"
)

// recordingAgent serves an echo agent and records every message it gets.
type recordingAgent struct {
	mu   sync.Mutex
	msgs []a2a.Message
}

func (r *recordingAgent) start(t *testing.T, process ProcessFunc) string {
	t.Helper()
	b := NewBaseAgent(testCard(), func(ctx context.Context, task *a2a.Task, msg a2a.Message) ([]a2a.Artifact, error) {
		r.mu.Lock()
		r.msgs = append(r.msgs, msg)
		r.mu.Unlock()
		return process(ctx, task, msg)
	})
	srv := httptest.NewServer(b.Routes())
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestA2AGenerator_Request_PreambleOnFirstTurnOnly(t *testing.T) {
	rec := &recordingAgent{}
	url := rec.start(t, echoProcess())

	g := NewA2AGenerator(a2a.NewHTTPClient(), url, NewConversation("You are a planner."))
	reply, err := g.Request(context.Background(), "first")
	require.NoError(t, err)
	assert.Equal(t, "echo: You are a planner.\n\nfirst", reply)

	reply, err = g.Request(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, "echo: second", reply)

	require.Len(t, rec.msgs, 2)
	assert.Equal(t, rec.msgs[0].ContextID, rec.msgs[1].ContextID)
	assert.NotEqual(t, rec.msgs[0].MessageID, rec.msgs[1].MessageID)
}

func TestA2AGenerator_Reset_NewContextAndPreamble(t *testing.T) {
	rec := &recordingAgent{}
	url := rec.start(t, echoProcess())

	conv := NewConversation("pre")
	g := NewA2AGenerator(a2a.NewHTTPClient(), url, conv)
	_, err := g.Request(context.Background(), "one")
	require.NoError(t, err)

	conv.Reset()
	reply, err := g.Request(context.Background(), "two")
	require.NoError(t, err)
	assert.Equal(t, "echo: pre\n\ntwo", reply)
	require.Len(t, rec.msgs, 2)
	assert.NotEqual(t, rec.msgs[0].ContextID, rec.msgs[1].ContextID)
}

func TestA2AGenerator_Request_FailedTask(t *testing.T) {
	rec := &recordingAgent{}
	url := rec.start(t, failProcess())

	g := NewA2AGenerator(a2a.NewHTTPClient(), url, nil)
	_, err := g.Request(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "processing failed")
}

func TestA2AGenerator_Request_EmptyReply(t *testing.T) {
	rec := &recordingAgent{}
	url := rec.start(t, func(context.Context, *a2a.Task, a2a.Message) ([]a2a.Artifact, error) {
		return nil, nil
	})

	g := NewA2AGenerator(a2a.NewHTTPClient(), url, nil)
	_, err := g.Request(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty reply")
}

func TestA2AGenerator_Request_Unreachable(t *testing.T) {
	g := NewA2AGenerator(a2a.NewHTTPClient(), "http://127.0.0.1:1", nil)
	_, err := g.Request(context.Background(), "x")
	require.Error(t, err)
}
