package orchestrator

import (
	"fmt"
	"strings"
)

// Fence languages the generators must answer in.
const (
	PlanLang  = "xml"
	LogicLang = "ltl"
)

func planRequestPrompt(request string) string {
	return "Mission request:\n" + strings.TrimSpace(request) +
		"\n\nAnswer with the behavior tree for this mission in a single ```" + PlanLang + " block."
}

func logicRequestPrompt(request string) string {
	return "Mission request:\n" + strings.TrimSpace(request) +
		"\n\nAnswer with #define macros for every task and sensed value, followed by one LTL formula over the macro names, in a single ```" + LogicLang + " block."
}

func retryPrompt(phase Phase, feedback string) string {
	what, lang := "behavior tree", PlanLang
	if phase == NeedLogic {
		what, lang = "specification", LogicLang
	}
	return strings.TrimSpace(feedback) + fmt.Sprintf("\n\nAnswer with the corrected %s in a single ```%s block.", what, lang)
}

func arbiterPrompt(request string, runs []string) string {
	var sb strings.Builder
	sb.WriteString("Mission request:\n")
	sb.WriteString(strings.TrimSpace(request))
	sb.WriteString("\n\nThese are example executions allowed by the mission specification, one step label per transition:\n")
	for i, r := range runs {
		if r == "" {
			r = "(accepted immediately)"
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, r)
	}
	sb.WriteString("\nDo these executions faithfully describe the mission? Answer yes, or no followed by what is wrong.")
	return sb.String()
}
