package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/missionplan/internal/automaton"
	"github.com/dusk-indust/missionplan/internal/graph"
	"github.com/dusk-indust/missionplan/internal/plan"
)

// PlanMermaid produces a Mermaid graph TD diagram of a task plan.
// Composite nodes are boxes, actions are rounded, conditions are diamonds.
func PlanMermaid(p *plan.Plan) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if p == nil || p.Root == nil {
		return sb.String()
	}

	nextID := 0
	var emit func(n plan.Node) string
	emit = func(n plan.Node) string {
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		sb.WriteString(fmt.Sprintf("  %s%s\n", id, planShape(n)))
		for _, c := range plan.Children(n) {
			child := emit(c)
			sb.WriteString(fmt.Sprintf("  %s --> %s\n", id, child))
		}
		return id
	}
	emit(p.Root)
	return sb.String()
}

func planShape(n plan.Node) string {
	switch n := n.(type) {
	case *plan.Sequence:
		return `["Sequence"]`
	case *plan.Fallback:
		return `["Fallback"]`
	case *plan.Parallel:
		return `["Parallel"]`
	case *plan.Action:
		label := n.Name
		if n.ActionType != "" && n.ActionType != n.Name {
			label += ": " + n.ActionType
		}
		return fmt.Sprintf("(\"%s\")", escape(label))
	case *plan.AssertTrue:
		return fmt.Sprintf("{\"%s\"}", escape(n.ResultVar+" is true"))
	case *plan.CheckValue:
		return fmt.Sprintf("{\"%s\"}", escape(fmt.Sprintf("%s %s %d", n.ValueVar, n.Comparator, n.Threshold)))
	}
	return `["?"]`
}

// AutomatonMermaid produces a Mermaid stateDiagram of an automaton.
// Accepting states are marked with a note; self-loops are drawn like any
// other edge.
func AutomatonMermaid(a *automaton.Automaton) string {
	var sb strings.Builder
	sb.WriteString("stateDiagram-v2\n")
	if a == nil || len(a.States) == 0 {
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("  [*] --> S%d\n", a.Initial))
	for _, s := range a.States {
		for _, e := range s.Edges {
			label := e.Label
			if label == "" {
				label = "t"
			}
			sb.WriteString(fmt.Sprintf("  S%d --> S%d: %s\n", s.ID, e.Dst, escapeState(label)))
		}
	}
	for _, s := range a.States {
		if s.Accepting {
			sb.WriteString(fmt.Sprintf("  note right of S%d: accepting\n", s.ID))
		}
	}
	return sb.String()
}

// StoredAutomatonMermaid renders the automaton cached for formula.
func StoredAutomatonMermaid(ctx context.Context, store graph.Store, formula string) (string, error) {
	a, err := store.LoadAutomaton(ctx, formula)
	if err != nil {
		return "", fmt.Errorf("load automaton: %w", err)
	}
	if a == nil {
		return "", fmt.Errorf("no automaton stored for %q", formula)
	}
	return AutomatonMermaid(a), nil
}

func escape(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}

// escapeState keeps a transition label on one line; ':' would start a new
// label in a state diagram.
func escapeState(s string) string {
	s = strings.ReplaceAll(s, ":", "#colon;")
	return strings.Join(strings.Fields(s), " ")
}
