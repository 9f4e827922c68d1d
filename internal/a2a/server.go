package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"
)

// Handler processes incoming A2A requests for a served agent.
type Handler interface {
	HandleSendMessage(ctx context.Context, req SendMessageRequest) (*Task, error)
	HandleGetTask(ctx context.Context, req GetTaskRequest) (*Task, error)
	HandleCancelTask(ctx context.Context, req CancelTaskRequest) (*Task, error)
}

// Server exposes one agent over HTTP: the card at the well-known path and
// JSON-RPC at /.
type Server struct {
	card    AgentCard
	handler Handler
	token   string
	http    *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithRequiredToken rejects JSON-RPC calls lacking the matching bearer
// token. The agent card stays public.
func WithRequiredToken(token string) ServerOption {
	return func(s *Server) {
		s.token = token
	}
}

// NewServer creates an A2A server for the given agent.
func NewServer(card AgentCard, handler Handler, opts ...ServerOption) *Server {
	s := &Server{card: card, handler: handler}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the HTTP handler, for mounting or for httptest.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+AgentCardPath, s.serveCard)
	mux.HandleFunc("POST /", s.serveRPC)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("a2a: listen %s: %w", addr, err)
	}
	s.http = &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()
	log.Printf("a2a: %s listening on %s", s.card.Name, ln.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("a2a: serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) serveCard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.card)
}

func (s *Server) serveRPC(w http.ResponseWriter, r *http.Request) {
	if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPC(w, JSONRPCResponse{Error: &JSONRPCError{Code: ErrCodeParse, Message: err.Error()}})
		return
	}

	var (
		result any
		err    error
	)
	switch req.Method {
	case MethodSendMessage:
		var p SendMessageRequest
		if err = decodeParams(req.Params, &p); err == nil {
			result, err = s.handler.HandleSendMessage(r.Context(), p)
		}
	case MethodGetTask:
		var p GetTaskRequest
		if err = decodeParams(req.Params, &p); err == nil {
			result, err = s.handler.HandleGetTask(r.Context(), p)
		}
	case MethodCancelTask:
		var p CancelTaskRequest
		if err = decodeParams(req.Params, &p); err == nil {
			result, err = s.handler.HandleCancelTask(r.Context(), p)
		}
	default:
		writeRPC(w, JSONRPCResponse{ID: req.ID, Error: &JSONRPCError{
			Code:    ErrCodeMethodNotFound,
			Message: fmt.Sprintf("method %q not found", req.Method),
		}})
		return
	}

	if err != nil {
		writeRPC(w, JSONRPCResponse{ID: req.ID, Error: rpcErrorFor(err)})
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		writeRPC(w, JSONRPCResponse{ID: req.ID, Error: &JSONRPCError{Code: ErrCodeInternal, Message: err.Error()}})
		return
	}
	writeRPC(w, JSONRPCResponse{ID: req.ID, Result: raw})
}

type paramsError struct{ err error }

func (e *paramsError) Error() string { return e.err.Error() }
func (e *paramsError) Unwrap() error { return e.err }

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return &paramsError{errors.New("missing params")}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &paramsError{err}
	}
	return nil
}

func rpcErrorFor(err error) *JSONRPCError {
	var pe *paramsError
	switch {
	case errors.As(err, &pe):
		return &JSONRPCError{Code: ErrCodeInvalidParams, Message: err.Error()}
	case errors.Is(err, ErrTaskNotFound):
		return &JSONRPCError{Code: ErrCodeTaskNotFound, Message: err.Error()}
	default:
		return &JSONRPCError{Code: ErrCodeInternal, Message: err.Error()}
	}
}

func writeRPC(w http.ResponseWriter, resp JSONRPCResponse) {
	resp.JSONRPC = JSONRPCVersion
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
