package a2a

import (
	"errors"
	"fmt"
	"sync"
)

// ErrTaskNotFound is returned when a task ID is not in the store.
var ErrTaskNotFound = errors.New("a2a: task not found")

// TaskStore is a concurrency-safe in-memory store for served tasks. It
// keeps at most limit tasks, evicting the oldest first.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	order []string
	limit int
}

// NewTaskStore returns a store bounded to limit tasks; limit <= 0 means
// unbounded.
func NewTaskStore(limit int) *TaskStore {
	return &TaskStore{
		tasks: make(map[string]*Task),
		limit: limit,
	}
}

// Create stores a new task.
func (s *TaskStore) Create(task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("a2a: task %q already exists", task.ID)
	}
	s.tasks[task.ID] = copyTask(&task)
	s.order = append(s.order, task.ID)
	if s.limit > 0 && len(s.order) > s.limit {
		evict := s.order[0]
		s.order = s.order[1:]
		delete(s.tasks, evict)
	}
	return nil
}

// Get returns a copy of the task with the given ID.
func (s *TaskStore) Get(id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTaskNotFound, id)
	}
	return copyTask(t), nil
}

// Update applies fn to the stored task under the write lock and returns a
// copy of the result.
func (s *TaskStore) Update(id string, fn func(*Task)) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTaskNotFound, id)
	}
	fn(t)
	return copyTask(t), nil
}

// Len returns the number of stored tasks.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

func copyTask(src *Task) *Task {
	dst := *src
	if src.Artifacts != nil {
		dst.Artifacts = make([]Artifact, len(src.Artifacts))
		for i, a := range src.Artifacts {
			a.Parts = append([]Part(nil), a.Parts...)
			dst.Artifacts[i] = a
		}
	}
	if src.Status.Message != nil {
		m := *src.Status.Message
		m.Parts = append([]Part(nil), m.Parts...)
		dst.Status.Message = &m
	}
	return &dst
}
