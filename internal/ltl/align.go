package ltl

import (
	"log"
	"regexp"
	"slices"

	"github.com/dusk-indust/missionplan/internal/compiler"
)

// MacroKind classifies a macro body by what it references.
type MacroKind int

const (
	// KindOther macros are left untouched by alignment.
	KindOther MacroKind = iota
	// KindTask macros compare a task's action type.
	KindTask
	// KindGlobal macros compare a sensed variable and reference no task.
	KindGlobal
)

var (
	actionRefRe  = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\.action\.actionType\b`)
	lhsOperandRe = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\s*(?:==|!=|<=|>=|<|>)`)
	rhsOperandRe = regexp.MustCompile(`\b[0-9]+\s*(?:==|!=|<=|>=|<|>)\s*([A-Za-z_][A-Za-z0-9_]*)\b`)
	identTokenRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_.]*`)
)

// Classify reports whether a macro body references a task, a sensed
// global, or neither.
func Classify(expr string) MacroKind {
	if actionRefRe.MatchString(expr) {
		return KindTask
	}
	if comparatorRe.MatchString(stripArrows(expr)) {
		return KindGlobal
	}
	return KindOther
}

// Align rewrites macro bodies so they name the identifiers a compiled
// model declares.
//
// The correspondence is positional. Distinct task identifiers in
// task-referencing macros are mapped, in order of first appearance, onto
// the catalog's tasks in declaration order; identifiers compared in
// global-referencing macros are mapped the same way onto the catalog's
// globals. It assumes both generators describe the mission in the same
// order as the compiled plan. Identifiers beyond the catalog's length are
// left unchanged. Aligning an aligned block again is a no-op.
func Align(cat *compiler.Catalog, macros []Macro) []Macro {
	if cat == nil {
		cat = &compiler.Catalog{}
	}

	var taskIdents, globalIdents []string
	seenTask := make(map[string]bool)
	seenGlobal := make(map[string]bool)
	for _, m := range macros {
		switch Classify(m.Expr) {
		case KindTask:
			for _, sm := range actionRefRe.FindAllStringSubmatch(m.Expr, -1) {
				if !seenTask[sm[1]] {
					seenTask[sm[1]] = true
					taskIdents = append(taskIdents, sm[1])
				}
			}
		case KindGlobal:
			for _, id := range globalOperands(m.Expr) {
				if !seenGlobal[id] {
					seenGlobal[id] = true
					globalIdents = append(globalIdents, id)
				}
			}
		}
	}

	taskMap := positional(taskIdents, cat.Tasks, "task")
	globalMap := positional(globalIdents, cat.Globals, "global")

	out := make([]Macro, len(macros))
	for i, m := range macros {
		out[i] = m
		switch Classify(m.Expr) {
		case KindTask:
			out[i].Expr = actionRefRe.ReplaceAllStringFunc(m.Expr, func(ref string) string {
				id := actionRefRe.FindStringSubmatch(ref)[1]
				return taskMap[id] + ".action.actionType"
			})
		case KindGlobal:
			out[i].Expr = identTokenRe.ReplaceAllStringFunc(m.Expr, func(tok string) string {
				if to, ok := globalMap[tok]; ok {
					return to
				}
				return tok
			})
		}
	}
	return out
}

func globalOperands(expr string) []string {
	cleaned := stripArrows(expr)
	// operand spans, in the order they are written
	var spans [][2]int
	for _, re := range []*regexp.Regexp{lhsOperandRe, rhsOperandRe} {
		for _, m := range re.FindAllStringSubmatchIndex(cleaned, -1) {
			spans = append(spans, [2]int{m[2], m[3]})
		}
	}
	slices.SortFunc(spans, func(a, b [2]int) int { return a[0] - b[0] })

	var ids []string
	for _, sp := range spans {
		if id := cleaned[sp[0]:sp[1]]; id != "true" && id != "false" {
			ids = append(ids, id)
		}
	}
	return ids
}

func positional(from, to []string, what string) map[string]string {
	m := make(map[string]string, len(from))
	for i, id := range from {
		if i < len(to) {
			m[id] = to[i]
		} else {
			m[id] = id
		}
	}
	if len(from) > len(to) {
		log.Printf("WARNING: ltl: logic references %d %s identifiers but the plan declares %d; extras left unchanged",
			len(from), what, len(to))
	}
	return m
}
