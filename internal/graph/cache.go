package graph

import (
	"context"
	"log"

	"github.com/dusk-indust/missionplan/internal/automaton"
)

// CachingTranslator consults a Store before delegating to another
// translator, and stores what it translates. Cache failures are logged and
// never fail a translation.
type CachingTranslator struct {
	next  automaton.Translator
	store Store
}

var _ automaton.Translator = (*CachingTranslator)(nil)

// NewCachingTranslator wraps next with store.
func NewCachingTranslator(next automaton.Translator, store Store) *CachingTranslator {
	return &CachingTranslator{next: next, store: store}
}

func (c *CachingTranslator) Translate(ctx context.Context, formula string) (*automaton.Automaton, error) {
	cached, err := c.store.LoadAutomaton(ctx, formula)
	if err != nil {
		log.Printf("WARNING: graph: automaton cache read failed: %v", err)
	} else if cached != nil {
		return cached, nil
	}

	a, err := c.next.Translate(ctx, formula)
	if err != nil {
		return nil, err
	}
	if err := c.store.SaveAutomaton(ctx, formula, a); err != nil {
		log.Printf("WARNING: graph: automaton cache write failed: %v", err)
	}
	return a, nil
}
