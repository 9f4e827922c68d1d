package orchestrator

import (
	"encoding/json"
	"fmt"
)

// Phase is a state of the pipeline controller.
type Phase int

const (
	NeedPlan Phase = iota
	NeedLogic
	NeedConsistency
	NeedVerification
	NeedArbitration
	NeedTrailCheck
	Done
	Failed
)

var phaseNames = [...]string{
	"need-plan",
	"need-logic",
	"need-consistency",
	"need-verification",
	"need-arbitration",
	"need-trail-check",
	"done",
	"failed",
}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// MarshalJSON renders the phase by name.
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON accepts a phase name.
func (p *Phase) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePhase(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, error) {
	for i, name := range phaseNames {
		if name == s {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("orchestrator: unknown phase %q", s)
}

// IsTerminal reports whether the controller stops in p.
func (p Phase) IsTerminal() bool {
	return p == Done || p == Failed
}

// forward lists the phases each phase may advance to on success. Retry
// edges and the edge to Failed are allowed from every non-terminal phase
// and are checked separately.
var forward = map[Phase][]Phase{
	NeedPlan:         {NeedLogic, NeedConsistency, Done},
	NeedLogic:        {NeedConsistency},
	NeedConsistency:  {NeedVerification},
	NeedVerification: {NeedArbitration},
	NeedArbitration:  {NeedTrailCheck},
	NeedTrailCheck:   {Done},
}

// retryTargets are the phases a recoverable error may send the run back to.
var retryTargets = map[Phase]bool{
	NeedPlan:        true,
	NeedLogic:       true,
	NeedArbitration: true,
}

// checkTransition reports an error for a move the controller must never
// make.
func checkTransition(from, to Phase, retry bool) error {
	if from.IsTerminal() {
		return fmt.Errorf("orchestrator: transition out of terminal phase %s", from)
	}
	if to == Failed {
		return nil
	}
	if retry {
		if retryTargets[to] {
			return nil
		}
		return fmt.Errorf("orchestrator: %s is not a retry target", to)
	}
	for _, next := range forward[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("orchestrator: disallowed transition %s -> %s", from, to)
}
