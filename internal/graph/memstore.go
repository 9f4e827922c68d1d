package graph

import (
	"context"
	"sync"

	"github.com/dusk-indust/missionplan/internal/automaton"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using a map. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu       sync.RWMutex
	automata map[string]*automaton.Automaton // key: FormulaKey
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{automata: make(map[string]*automaton.Automaton)}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

func (m *MemStore) SaveAutomaton(_ context.Context, formula string, a *automaton.Automaton) error {
	key := FormulaKey(formula)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.automata[key]; ok {
		return nil
	}
	m.automata[key] = cloneAutomaton(a)
	return nil
}

func (m *MemStore) LoadAutomaton(_ context.Context, formula string) (*automaton.Automaton, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.automata[FormulaKey(formula)]
	if !ok {
		return nil, nil
	}
	return cloneAutomaton(a), nil
}

func (m *MemStore) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := &Stats{FormulaCount: len(m.automata)}
	for _, a := range m.automata {
		st.StateCount += len(a.States)
		for _, s := range a.States {
			st.TransitionCount += len(s.Edges)
		}
	}
	return st, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}
