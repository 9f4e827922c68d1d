// Package graph persists translated automata as property graphs so that a
// formula is only handed to the external translator once.
package graph

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"

	"github.com/dusk-indust/missionplan/internal/automaton"
)

// Store is the interface for the automaton cache backend.
// Implementations: KuzuStore (production, cgo), MemStore (testing and
// builds without cgo).
type Store interface {
	io.Closer

	// Schema setup, called once before any automaton is saved.
	InitSchema(ctx context.Context) error

	// SaveAutomaton stores the automaton translated from formula. Saving a
	// formula that is already stored is a no-op.
	SaveAutomaton(ctx context.Context, formula string, a *automaton.Automaton) error

	// LoadAutomaton returns the stored automaton, or nil if the formula has
	// not been saved.
	LoadAutomaton(ctx context.Context, formula string) (*automaton.Automaton, error)

	Stats(ctx context.Context) (*Stats, error)
}

// Stats summarizes the cache contents.
type Stats struct {
	FormulaCount    int `json:"formulaCount"`
	StateCount      int `json:"stateCount"`
	TransitionCount int `json:"transitionCount"`
}

// FormulaKey is the cache key for a formula. Whitespace differences do not
// change the key.
func FormulaKey(formula string) string {
	sum := sha256.Sum256([]byte(strings.Join(strings.Fields(formula), " ")))
	return hex.EncodeToString(sum[:])
}

// cloneAutomaton deep-copies a so cached values cannot be mutated by callers.
func cloneAutomaton(a *automaton.Automaton) *automaton.Automaton {
	out := &automaton.Automaton{
		Initial: a.Initial,
		APs:     append([]string(nil), a.APs...),
		States:  make([]automaton.State, len(a.States)),
	}
	for i, s := range a.States {
		out.States[i] = automaton.State{
			ID:        s.ID,
			Accepting: s.Accepting,
			Edges:     append([]automaton.Edge(nil), s.Edges...),
		}
	}
	return out
}
