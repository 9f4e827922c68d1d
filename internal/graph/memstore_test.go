package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/missionplan/internal/automaton"
)

// branching is a four-state automaton with one branch and an accepting sink.
func branching() *automaton.Automaton {
	return &automaton.Automaton{
		Initial: 0,
		APs:     []string{"a", "low"},
		States: []automaton.State{
			{ID: 0, Edges: []automaton.Edge{{Dst: 1, Label: "a"}}},
			{ID: 1, Edges: []automaton.Edge{{Dst: 2, Label: "low"}, {Dst: 3, Label: "!low"}}},
			{ID: 2, Edges: []automaton.Edge{{Dst: 3, Label: "1"}}},
			{ID: 3, Accepting: true, Edges: []automaton.Edge{{Dst: 3, Label: "1", SelfLoop: true}}},
		},
	}
}

func TestMemStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	require.NoError(t, s.InitSchema(ctx))
	require.NoError(t, s.SaveAutomaton(ctx, "a && X low", branching()))

	got, err := s.LoadAutomaton(ctx, "a  &&  X low")
	require.NoError(t, err)
	assert.Equal(t, branching(), got, "whitespace does not change the key")

	missing, err := s.LoadAutomaton(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	require.NoError(t, s.SaveAutomaton(ctx, "f", branching()))

	got, err := s.LoadAutomaton(ctx, "f")
	require.NoError(t, err)
	got.States[0].Edges[0].Label = "mutated"

	again, err := s.LoadAutomaton(ctx, "f")
	require.NoError(t, err)
	assert.Equal(t, "a", again.States[0].Edges[0].Label)
}

func TestMemStore_Stats(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	require.NoError(t, s.SaveAutomaton(ctx, "f", branching()))
	require.NoError(t, s.SaveAutomaton(ctx, "f", branching()))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Stats{FormulaCount: 1, StateCount: 4, TransitionCount: 5}, st)
}

func TestCachingTranslator_TranslatesOnce(t *testing.T) {
	calls := 0
	next := automaton.TranslatorFunc(func(ctx context.Context, formula string) (*automaton.Automaton, error) {
		calls++
		return branching(), nil
	})
	c := NewCachingTranslator(next, NewMemStore())

	for range 3 {
		a, err := c.Translate(context.Background(), "a && X low")
		require.NoError(t, err)
		assert.Equal(t, 4, automaton.CountTransitions(a))
	}
	assert.Equal(t, 1, calls)
}

func TestCachingTranslator_ErrorsNotCached(t *testing.T) {
	calls := 0
	boom := errors.New("rejected")
	next := automaton.TranslatorFunc(func(ctx context.Context, formula string) (*automaton.Automaton, error) {
		calls++
		return nil, boom
	})
	c := NewCachingTranslator(next, NewMemStore())

	_, err := c.Translate(context.Background(), "bad")
	assert.ErrorIs(t, err, boom)
	_, err = c.Translate(context.Background(), "bad")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestFormulaKey_Stable(t *testing.T) {
	assert.Equal(t, FormulaKey("a && b"), FormulaKey(" a &&\n b "))
	assert.NotEqual(t, FormulaKey("a && b"), FormulaKey("a || b"))
}
