package automaton

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// DefaultSampleRuns is the number of runs SampleRuns draws when asked for
// zero or fewer.
const DefaultSampleRuns = 5

// DefaultMaxSteps bounds a single walk.
const DefaultMaxSteps = 1000

// SamplerDeadlockError reports a walk that cannot reach an accepting
// state: either a non-accepting state has no outgoing edge other than
// self-loops, or the step bound ran out.
type SamplerDeadlockError struct {
	State int
	Steps int
	// Exhausted is true when the step bound, not a dead end, stopped the walk.
	Exhausted bool
}

func (e *SamplerDeadlockError) Error() string {
	if e.Exhausted {
		return fmt.Sprintf("automaton: no accepting state within %d steps (last state %d)", e.Steps, e.State)
	}
	return fmt.Sprintf("automaton: state %d has no outgoing transition besides self-loops", e.State)
}

// Sampler draws random accepting runs from an automaton.
type Sampler struct {
	rng      *rand.Rand
	maxSteps int
}

// NewSampler creates a sampler. A nil rng uses a randomly seeded source;
// maxSteps <= 0 uses DefaultMaxSteps.
func NewSampler(rng *rand.Rand, maxSteps int) *Sampler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Sampler{rng: rng, maxSteps: maxSteps}
}

// SampleRuns returns count example traces. Each walk starts at the initial
// state and follows uniformly chosen non-self-loop edges until it reaches
// an accepting state; the trace is the visited edge labels joined by
// spaces. Self-loops never appear in a trace.
func (s *Sampler) SampleRuns(a *Automaton, count int) ([]string, error) {
	if count <= 0 {
		count = DefaultSampleRuns
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	runs := make([]string, 0, count)
	for range count {
		run, err := s.walk(a)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (s *Sampler) walk(a *Automaton) (string, error) {
	cur := a.Initial
	var labels []string
	for steps := 0; !a.States[cur].Accepting; steps++ {
		if steps >= s.maxSteps {
			return "", &SamplerDeadlockError{State: cur, Steps: steps, Exhausted: true}
		}
		var forward []Edge
		for _, e := range a.States[cur].Edges {
			if !e.SelfLoop {
				forward = append(forward, e)
			}
		}
		if len(forward) == 0 {
			return "", &SamplerDeadlockError{State: cur, Steps: steps}
		}
		e := forward[s.rng.IntN(len(forward))]
		labels = append(labels, e.Label)
		cur = e.Dst
	}
	return strings.Join(labels, " "), nil
}
