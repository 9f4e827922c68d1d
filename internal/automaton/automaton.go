// Package automaton holds the Büchi automata translated from mission
// logic, and the two questions the pipeline asks of them: how many
// transitions they make, and what accepting runs look like.
package automaton

import (
	"context"
	"fmt"
)

// Edge is one outgoing transition.
type Edge struct {
	Dst      int
	Label    string
	SelfLoop bool
}

// State is an automaton state. IDs are dense: a state's ID is its index
// in Automaton.States.
type State struct {
	ID        int
	Accepting bool
	Edges     []Edge
}

// Automaton is a state-based Büchi automaton.
type Automaton struct {
	Initial int
	States  []State
	// APs are the atomic proposition names, in HOA index order.
	APs []string
}

// Validate checks that the initial state and every edge destination exist.
func (a *Automaton) Validate() error {
	n := len(a.States)
	if a.Initial < 0 || a.Initial >= n {
		return fmt.Errorf("automaton: initial state %d out of range [0,%d)", a.Initial, n)
	}
	for i, s := range a.States {
		if s.ID != i {
			return fmt.Errorf("automaton: state at index %d has id %d", i, s.ID)
		}
		for _, e := range s.Edges {
			if e.Dst < 0 || e.Dst >= n {
				return fmt.Errorf("automaton: edge %d -> %d out of range", i, e.Dst)
			}
		}
	}
	return nil
}

// CountTransitions returns the number of edges that are not self-loops.
// It is the logic-side figure compared against plan.CountTasks.
func CountTransitions(a *Automaton) int {
	if a == nil {
		return 0
	}
	n := 0
	for _, s := range a.States {
		for _, e := range s.Edges {
			if !e.SelfLoop {
				n++
			}
		}
	}
	return n
}

// Translator turns an LTL formula into an automaton.
type Translator interface {
	Translate(ctx context.Context, formula string) (*Automaton, error)
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(ctx context.Context, formula string) (*Automaton, error)

func (f TranslatorFunc) Translate(ctx context.Context, formula string) (*Automaton, error) {
	return f(ctx, formula)
}
