package orchestrator

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Serial runs missions on an Orchestrator one at a time. Every entry point
// that starts missions on a shared pipeline goes through one Serial.
type Serial struct {
	next   Orchestrator
	before func()
	sem    *semaphore.Weighted
}

var _ Orchestrator = (*Serial)(nil)

// NewSerial wraps next. before, if set, runs inside the critical section
// ahead of every mission; the CLI uses it to open fresh collaborator
// conversations.
func NewSerial(next Orchestrator, before func()) *Serial {
	return &Serial{next: next, before: before, sem: semaphore.NewWeighted(1)}
}

// Run waits for any mission in progress, then runs request.
func (s *Serial) Run(ctx context.Context, request string) (*Report, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("pipeline: wait for running mission: %w", err)
	}
	defer s.sem.Release(1)

	if s.before != nil {
		s.before()
	}
	return s.next.Run(ctx, request)
}

// Progress returns the wrapped orchestrator's progress channel.
func (s *Serial) Progress() <-chan ProgressEvent {
	return s.next.Progress()
}
