package orchestrator

import (
	"fmt"
	"sync"
)

// ProgressEvent is emitted to the user during a run.
type ProgressEvent struct {
	Phase   Phase
	Attempt int
	Status  ProgressStatus
	Message string
}

// ProgressStatus is the state of a phase within a run.
type ProgressStatus string

const (
	ProgressWorking  ProgressStatus = "working"
	ProgressComplete ProgressStatus = "complete"
	ProgressRetrying ProgressStatus = "retrying"
	ProgressFailed   ProgressStatus = "failed"
)

// ProgressReporter emits progress events through a buffered channel.
// Emit after Close is a no-op, and Close may be called more than once.
type ProgressReporter struct {
	mu     sync.Mutex
	ch     chan ProgressEvent
	closed bool
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, 64),
	}
}

// Emit sends a progress event without blocking.
// If the channel is full, the event is dropped.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if pr.closed {
		return
	}
	select {
	case pr.ch <- event:
	default:
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel.
func (pr *ProgressReporter) Close() {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if !pr.closed {
		pr.closed = true
		close(pr.ch)
	}
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	attempt := ""
	if event.Attempt > 0 {
		attempt = fmt.Sprintf(" [retry %d]", event.Attempt)
	}
	switch event.Status {
	case ProgressWorking:
		return fmt.Sprintf("  ● %s%s...", event.Phase, attempt)
	case ProgressComplete:
		if event.Message != "" {
			return fmt.Sprintf("  ✓ %s%s: %s", event.Phase, attempt, event.Message)
		}
		return fmt.Sprintf("  ✓ %s%s", event.Phase, attempt)
	case ProgressRetrying:
		return fmt.Sprintf("  ↻ %s%s: %s", event.Phase, attempt, event.Message)
	case ProgressFailed:
		return fmt.Sprintf("  ✗ %s%s failed: %s", event.Phase, attempt, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", event.Phase)
	}
}
