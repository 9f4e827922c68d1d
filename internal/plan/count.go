package plan

// CountTasks returns the number of automaton transitions a plan is expected
// to produce. Each Action counts 1. Each Fallback with n children adds
// 2*ceil(n/2) on top of its children: every pair of alternatives contributes
// two branching transitions, and a lone alternative still contributes two.
// Conditions contribute nothing of their own.
func CountTasks(p *Plan) int {
	if p == nil {
		return 0
	}
	return countNode(p.Root)
}

func countNode(n Node) int {
	switch n := n.(type) {
	case *Action:
		return 1
	case *Fallback:
		total := 2 * ((len(n.Children) + 1) / 2)
		for _, c := range n.Children {
			total += countNode(c)
		}
		return total
	case *Sequence, *Parallel:
		total := 0
		for _, c := range Children(n) {
			total += countNode(c)
		}
		return total
	}
	return 0
}

// Actions returns every Action in the plan in document order.
func Actions(p *Plan) []*Action {
	var out []*Action
	if p == nil {
		return out
	}
	Walk(p.Root, func(n Node) bool {
		if a, ok := n.(*Action); ok {
			out = append(out, a)
		}
		return true
	})
	return out
}
