package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------- mock handler ----------

type mockHandler struct {
	sendMessage func(ctx context.Context, req SendMessageRequest) (*Task, error)
	getTask     func(ctx context.Context, req GetTaskRequest) (*Task, error)
	cancelTask  func(ctx context.Context, req CancelTaskRequest) (*Task, error)
}

func (m *mockHandler) HandleSendMessage(ctx context.Context, req SendMessageRequest) (*Task, error) {
	if m.sendMessage != nil {
		return m.sendMessage(ctx, req)
	}
	return nil, errors.New("sendMessage not implemented")
}

func (m *mockHandler) HandleGetTask(ctx context.Context, req GetTaskRequest) (*Task, error) {
	if m.getTask != nil {
		return m.getTask(ctx, req)
	}
	return nil, errors.New("getTask not implemented")
}

func (m *mockHandler) HandleCancelTask(ctx context.Context, req CancelTaskRequest) (*Task, error) {
	if m.cancelTask != nil {
		return m.cancelTask(ctx, req)
	}
	return nil, errors.New("cancelTask not implemented")
}

func testCard() AgentCard {
	return AgentCard{Name: "planner", Description: "plans", Version: "0.1.0"}
}

func startServer(t *testing.T, h Handler, opts ...ServerOption) string {
	t.Helper()
	srv := httptest.NewServer(NewServer(testCard(), h, opts...).Routes())
	t.Cleanup(srv.Close)
	return srv.URL
}

// ---------- client/server ----------

func TestClient_SendMessage_RoundTrip(t *testing.T) {
	h := &mockHandler{sendMessage: func(_ context.Context, req SendMessageRequest) (*Task, error) {
		assert.True(t, req.Blocking)
		return &Task{
			ID:        "t1",
			ContextID: req.Message.ContextID,
			Status:    TaskStatus{State: TaskStateCompleted},
			Artifacts: []Artifact{{ArtifactID: "a1", Parts: []Part{TextPart("reply to " + req.Message.Text())}}},
		}, nil
	}}
	url := startServer(t, h)

	task, err := NewHTTPClient().SendMessage(context.Background(), url, SendMessageRequest{
		Message:  NewUserMessage("ctx-1", "hello"),
		Blocking: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "t1", task.ID)
	assert.Equal(t, "ctx-1", task.ContextID)
	assert.Equal(t, "reply to hello", task.ArtifactText())
}

func TestClient_GetAndCancel(t *testing.T) {
	h := &mockHandler{
		getTask: func(_ context.Context, req GetTaskRequest) (*Task, error) {
			return &Task{ID: req.ID, Status: TaskStatus{State: TaskStateWorking}}, nil
		},
		cancelTask: func(_ context.Context, req CancelTaskRequest) (*Task, error) {
			return &Task{ID: req.ID, Status: TaskStatus{State: TaskStateCanceled}}, nil
		},
	}
	url := startServer(t, h)
	c := NewHTTPClient()

	task, err := c.GetTask(context.Background(), url, GetTaskRequest{ID: "t9"})
	require.NoError(t, err)
	assert.Equal(t, TaskStateWorking, task.Status.State)

	task, err = c.CancelTask(context.Background(), url, CancelTaskRequest{ID: "t9"})
	require.NoError(t, err)
	assert.Equal(t, TaskStateCanceled, task.Status.State)
}

func TestClient_TaskNotFound_MapsToRPCError(t *testing.T) {
	h := &mockHandler{getTask: func(_ context.Context, req GetTaskRequest) (*Task, error) {
		return nil, ErrTaskNotFound
	}}
	url := startServer(t, h)

	_, err := NewHTTPClient().GetTask(context.Background(), url, GetTaskRequest{ID: "x"})
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, ErrCodeTaskNotFound, rpcErr.Code)
	assert.Equal(t, MethodGetTask, rpcErr.Method)
}

func TestClient_DiscoverAgent(t *testing.T) {
	url := startServer(t, &mockHandler{})
	card, err := NewHTTPClient().DiscoverAgent(context.Background(), url+"/")
	require.NoError(t, err)
	assert.Equal(t, "planner", card.Name)
}

func TestClient_DiscoverAgent_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	_, err := NewHTTPClient().DiscoverAgent(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestServer_BearerToken(t *testing.T) {
	h := &mockHandler{getTask: func(_ context.Context, req GetTaskRequest) (*Task, error) {
		return &Task{ID: req.ID}, nil
	}}
	url := startServer(t, h, WithRequiredToken("s3cret"))

	_, err := NewHTTPClient().GetTask(context.Background(), url, GetTaskRequest{ID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")

	task, err := NewHTTPClient(WithBearerToken("s3cret")).GetTask(context.Background(), url, GetTaskRequest{ID: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", task.ID)

	// The card stays public.
	_, err = NewHTTPClient().DiscoverAgent(context.Background(), url)
	require.NoError(t, err)
}

func TestServer_UnknownMethod(t *testing.T) {
	url := startServer(t, &mockHandler{})
	resp := postRPC(t, url, `{"jsonrpc":"2.0","id":1,"method":"tasks/list","params":{}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeMethodNotFound, resp.Error.Code)
}

func TestServer_MalformedBodyAndParams(t *testing.T) {
	url := startServer(t, &mockHandler{})

	resp := postRPC(t, url, `{not json`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeParse, resp.Error.Code)

	resp = postRPC(t, url, `{"jsonrpc":"2.0","id":2,"method":"tasks/get"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidParams, resp.Error.Code)
}

func TestServer_ListenAndServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- NewServer(testCard(), &mockHandler{}).ListenAndServe(ctx, "127.0.0.1:0")
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func postRPC(t *testing.T, url, body string) JSONRPCResponse {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out JSONRPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, JSONRPCVersion, out.JSONRPC)
	return out
}

// ---------- types ----------

func TestTaskState_IsTerminal(t *testing.T) {
	assert.False(t, TaskStateSubmitted.IsTerminal())
	assert.False(t, TaskStateWorking.IsTerminal())
	for _, s := range []TaskState{TaskStateCompleted, TaskStateFailed, TaskStateCanceled, TaskStateRejected} {
		assert.True(t, s.IsTerminal(), s)
	}
}

func TestNewUserMessage(t *testing.T) {
	m1 := NewUserMessage("c", "hi")
	m2 := NewUserMessage("c", "hi")
	assert.Equal(t, RoleUser, m1.Role)
	assert.Equal(t, "hi", m1.Text())
	assert.NotEqual(t, m1.MessageID, m2.MessageID)
	assert.Len(t, m1.MessageID, 36)
}

func TestTask_ArtifactText_JoinsArtifacts(t *testing.T) {
	task := &Task{Artifacts: []Artifact{
		{Parts: []Part{TextPart("a"), TextPart("b")}},
		{Parts: nil},
		{Parts: []Part{TextPart("c")}},
	}}
	assert.Equal(t, "ab\n\nc", task.ArtifactText())
}

// ---------- task store ----------

func TestTaskStore_CreateGetUpdate(t *testing.T) {
	s := NewTaskStore(0)
	require.NoError(t, s.Create(Task{ID: "t1", Status: TaskStatus{State: TaskStateWorking}}))
	require.Error(t, s.Create(Task{ID: "t1"}))

	got, err := s.Update("t1", func(task *Task) {
		task.Status.State = TaskStateCompleted
		task.Artifacts = []Artifact{{Parts: []Part{TextPart("x")}}}
	})
	require.NoError(t, err)
	assert.Equal(t, TaskStateCompleted, got.Status.State)

	// Copies do not alias the stored task.
	got.Artifacts[0].Parts[0].Text = "mutated"
	again, err := s.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, "x", again.Artifacts[0].Parts[0].Text)

	_, err = s.Get("missing")
	require.ErrorIs(t, err, ErrTaskNotFound)
	_, err = s.Update("missing", func(*Task) {})
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskStore_EvictsOldest(t *testing.T) {
	s := NewTaskStore(2)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Create(Task{ID: id}))
	}
	assert.Equal(t, 2, s.Len())
	_, err := s.Get("a")
	require.ErrorIs(t, err, ErrTaskNotFound)
	_, err = s.Get("c")
	require.NoError(t, err)
}
