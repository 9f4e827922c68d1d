package ltl

import (
	"fmt"
	"log"
	"regexp"
)

// InitialMacroName is the name given to a synthesized initial-state macro.
const InitialMacroName = "init_state"

var initialExprRe = regexp.MustCompile(`^\(?\s*[A-Za-z_][A-Za-z0-9_]*\.action\.actionType\s*==\s*0\s*\)?$`)

// IsInitial reports whether a macro asserts that a task still holds its
// zero value, i.e. the model has not taken its first step.
func IsInitial(m Macro) bool {
	return initialExprRe.MatchString(m.Expr)
}

// WrapInitial anchors the formula to the model's initial state. Model
// variables start at zero, so the property must tell the real first step
// apart from that default: the formula becomes "(init && X(formula))".
//
// The first initial-state macro is used if present. Otherwise one is
// synthesized from the first task-referencing macro's task with value 0
// and appended to the returned block. A formula that already references
// the initial macro is returned unchanged.
func WrapInitial(macros []Macro, formula string) ([]Macro, string) {
	out := append([]Macro(nil), macros...)

	name := ""
	for _, m := range macros {
		if IsInitial(m) {
			name = m.Name
			break
		}
	}
	if name == "" {
		task := ""
		for _, m := range macros {
			if sm := actionRefRe.FindStringSubmatch(m.Expr); sm != nil {
				task = sm[1]
				break
			}
		}
		if task == "" {
			log.Printf("WARNING: ltl: no task-referencing macro; formula left unanchored")
			return out, formula
		}
		name = uniqueName(macros, InitialMacroName)
		out = append(out, Macro{Name: name, Expr: fmt.Sprintf("%s.action.actionType == 0", task)})
	}

	if regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`).MatchString(formula) {
		return out, formula
	}
	return out, fmt.Sprintf("(%s && X(%s))", name, formula)
}

func uniqueName(macros []Macro, base string) string {
	taken := make(map[string]bool, len(macros))
	for _, m := range macros {
		taken[m.Name] = true
	}
	name := base
	for i := 2; taken[name]; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	return name
}
