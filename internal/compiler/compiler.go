// Package compiler turns a task plan into a Promela verification model.
//
// The model is the caller-supplied template followed by one Task
// declaration per action, one int per sensed variable, and an init process
// whose atomic block mirrors the plan's control flow. Conditions become
// guarded if-branches over a nondeterministically selected value, so Spin
// explores every outcome a sensor reading could produce.
package compiler

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/dusk-indust/missionplan/internal/plan"
)

// ErrUnsupportedParallel is wrapped by the CompilationError returned for
// plans containing a Parallel node.
var ErrUnsupportedParallel = errors.New("parallel composition is not supported")

// CompilationError reports a plan the compiler cannot translate. It is
// never retried: regenerating the plan does not fix a compiler limitation.
type CompilationError struct {
	Kind plan.NodeKind
	Err  error
}

func (e *CompilationError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("compiler: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("compiler: %v", e.Err)
}

func (e *CompilationError) Unwrap() error { return e.Err }

// Model is compiled Promela source without the property section.
type Model struct {
	Source string
}

// Catalog lists the identifiers a compiled model declares, in declaration
// order. The macro aligner rewrites logic identifiers against it.
type Catalog struct {
	Tasks   []string
	Globals []string
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Compile translates p into a verification model. The same plan and
// template always produce the same model and catalog.
func Compile(p *plan.Plan, template string) (*Model, *Catalog, error) {
	if p == nil || p.Root == nil {
		return nil, nil, &CompilationError{Err: errors.New("empty plan")}
	}

	b := newBuilder()
	if err := b.node(p.Root, newScope(nil), 2); err != nil {
		return nil, nil, err
	}

	cat := &Catalog{
		Tasks:   append([]string(nil), b.tasks...),
		Globals: append([]string(nil), b.globals...),
	}
	return &Model{Source: b.assemble(template)}, cat, nil
}

// ---------- builder ----------

type builder struct {
	tasks    []string
	globals  []string
	taskSet  map[string]bool
	declared map[string]bool // global names in use
	varUses  map[string]int  // sensed variable -> globals allocated for it
	lines    []string
}

func newBuilder() *builder {
	return &builder{
		taskSet:  make(map[string]bool),
		declared: make(map[string]bool),
		varUses:  make(map[string]int),
	}
}

func (b *builder) emit(depth int, format string, args ...any) {
	b.lines = append(b.lines, strings.Repeat("    ", depth)+fmt.Sprintf(format, args...))
}

func (b *builder) assemble(template string) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(template, "\n"))
	sb.WriteString("\n\n")
	for _, t := range b.tasks {
		fmt.Fprintf(&sb, "Task %s;\n", t)
	}
	sb.WriteString("\n")
	for _, g := range b.globals {
		fmt.Fprintf(&sb, "int %s;\n", g)
	}
	sb.WriteString("\ninit {\n    atomic {\n")
	if len(b.lines) == 0 {
		sb.WriteString("        skip\n")
	}
	for _, l := range b.lines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString("    }\n}\n")
	return sb.String()
}

func (b *builder) node(n plan.Node, sc *scope, depth int) error {
	switch n := n.(type) {
	case *plan.Sequence:
		return b.sequence(n.Children, sc, depth)
	case *plan.Fallback:
		alts := make([][]plan.Node, 0, len(n.Children))
		for _, c := range n.Children {
			if s, ok := c.(*plan.Sequence); ok {
				alts = append(alts, s.Children)
			} else {
				alts = append(alts, []plan.Node{c})
			}
		}
		return b.group(alts, sc, depth)
	case *plan.Parallel:
		return &CompilationError{Kind: plan.KindParallel, Err: ErrUnsupportedParallel}
	case *plan.Action:
		return b.action(n, depth)
	case plan.Condition:
		return b.sequence([]plan.Node{n}, sc, depth)
	}
	return &CompilationError{Err: fmt.Errorf("unexpected node %T", n)}
}

// sequence compiles children in order. A condition in the middle of a
// sequence guards everything after it.
func (b *builder) sequence(children []plan.Node, sc *scope, depth int) error {
	for i, c := range children {
		if _, ok := c.(plan.Condition); ok {
			return b.group([][]plan.Node{children[i:]}, sc, depth)
		}
		if err := b.node(c, sc, depth); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) action(a *plan.Action, depth int) error {
	if !identRe.MatchString(a.Name) {
		return &CompilationError{Kind: plan.KindAction, Err: fmt.Errorf("task name %q is not a valid identifier", a.Name)}
	}
	if !identRe.MatchString(a.ActionType) {
		return &CompilationError{Kind: plan.KindAction, Err: fmt.Errorf("action type %q is not a valid identifier", a.ActionType)}
	}
	if b.declared[a.Name] {
		return &CompilationError{Kind: plan.KindAction, Err: fmt.Errorf("task name %q collides with a sensed variable", a.Name)}
	}
	if !b.taskSet[a.Name] {
		b.taskSet[a.Name] = true
		b.tasks = append(b.tasks, a.Name)
	}
	b.emit(depth, "%s.action.actionType = %s;", a.Name, a.ActionType)
	return nil
}

// ---------- conditional groups ----------

type branch struct {
	terms []term
	body  []plan.Node
}

func (br *branch) guard() string {
	parts := make([]string, len(br.terms))
	for i, t := range br.terms {
		parts[i] = t.expr
	}
	return strings.Join(parts, " && ")
}

// group compiles one if-block. Each alternative's leading conditions form
// its guard; the remaining nodes form its body. Value selection for every
// newly bound variable is emitted before the if.
func (b *builder) group(alts [][]plan.Node, sc *scope, depth int) error {
	g := newScope(sc)
	var selects []string
	var branches []*branch

	for i, alt := range alts {
		conds, body := splitGuard(alt)
		br := &branch{body: body}
		for _, c := range conds {
			t, sel, err := b.bind(c, g, i)
			if err != nil {
				return err
			}
			if sel != "" {
				selects = append(selects, sel)
			}
			br.terms = append(br.terms, t)
		}
		branches = append(branches, br)
		if len(br.terms) == 0 && i < len(alts)-1 {
			log.Printf("WARNING: compiler: unguarded alternative %d hides %d later alternatives", i+1, len(alts)-i-1)
			break
		}
	}

	for _, s := range selects {
		b.emit(depth, "%s", s)
	}
	b.emit(depth, "if")
	for _, br := range branches {
		if len(br.terms) == 0 {
			b.emit(depth, ":: else ->")
		} else {
			b.emit(depth, ":: %s ->", br.guard())
		}
		before := len(b.lines)
		if err := b.sequence(br.body, g, depth+1); err != nil {
			return err
		}
		if len(b.lines) == before {
			b.emit(depth+1, "skip")
		}
	}
	if !exhaustive(branches) {
		b.emit(depth, ":: else -> skip")
	}
	b.emit(depth, "fi;")
	return nil
}

func splitGuard(nodes []plan.Node) (conds []plan.Condition, body []plan.Node) {
	i := 0
	for ; i < len(nodes); i++ {
		c, ok := nodes[i].(plan.Condition)
		if !ok {
			break
		}
		conds = append(conds, c)
	}
	return conds, nodes[i:]
}

// exhaustive reports whether the branches cover every selectable value,
// making a default branch unreachable.
func exhaustive(branches []*branch) bool {
	if len(branches) == 0 {
		return false
	}
	if len(branches[len(branches)-1].terms) == 0 {
		return true
	}
	var ref *binding
	for _, br := range branches {
		if len(br.terms) != 1 {
			return false
		}
		if ref == nil {
			ref = br.terms[0].binding
		} else if br.terms[0].binding != ref {
			return false
		}
	}
	if ref.lo > ref.hi {
		return false
	}
	for i := 0; i <= ref.hi-ref.lo; i++ {
		v := ref.lo + i
		covered := false
		for _, br := range branches {
			if br.terms[0].holds(v) {
				covered = true
				break
			}
		}
		if !covered {
			return false
		}
	}
	return true
}

// ---------- variable binding ----------

type binding struct {
	global string
	lo, hi int
	// alt is the alternative of the binding group that first read it.
	alt int
}

type scope struct {
	parent *scope
	vars   map[string]*binding
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, vars: make(map[string]*binding)}
}

func (s *scope) lookup(v string) (b *binding, local bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.vars[v]; ok {
			return b, cur == s
		}
	}
	return nil, false
}

type term struct {
	expr    string
	binding *binding
	holds   func(v int) bool
}

// bind resolves the global a condition reads in alternative alt of group
// g. A variable already read in the enclosing groups reuses its global;
// otherwise a fresh global is allocated and its select statement returned.
func (b *builder) bind(c plan.Condition, g *scope, alt int) (term, string, error) {
	v := c.Var()
	if !identRe.MatchString(v) {
		return term{}, "", &CompilationError{Kind: c.Kind(), Err: fmt.Errorf("variable %q is not a valid identifier", v)}
	}
	if cv, ok := c.(*plan.CheckValue); ok && !plan.ValidThreshold(cv.Threshold) {
		return term{}, "", &CompilationError{Kind: c.Kind(), Err: fmt.Errorf(
			"threshold %d outside [%d, %d]", cv.Threshold, plan.MinThreshold, plan.MaxThreshold)}
	}

	bnd, local := g.lookup(v)
	sel := ""
	if bnd == nil {
		lo, hi := domain(c)
		bnd = &binding{global: b.freshGlobal(v), lo: lo, hi: hi, alt: alt}
		g.vars[v] = bnd
		sel = fmt.Sprintf("select(%s : %d..%d);", bnd.global, lo, hi)
	}

	switch c := c.(type) {
	case *plan.AssertTrue:
		want := 1
		if local && bnd.alt < alt {
			// asserted by an earlier alternative: this is its false branch
			want = 0
		}
		return term{
			expr:    fmt.Sprintf("%s == %d", bnd.global, want),
			binding: bnd,
			holds:   func(x int) bool { return x == want },
		}, sel, nil
	case *plan.CheckValue:
		return term{
			expr:    fmt.Sprintf("%s %s %d", bnd.global, c.Comparator, c.Threshold),
			binding: bnd,
			holds:   func(x int) bool { return c.Comparator.Holds(x, c.Threshold) },
		}, sel, nil
	}
	return term{}, "", &CompilationError{Err: fmt.Errorf("unexpected condition %T", c)}
}

func domain(c plan.Condition) (lo, hi int) {
	if cv, ok := c.(*plan.CheckValue); ok {
		return cv.Threshold - 1, cv.Threshold + 1
	}
	return 0, 1
}

// freshGlobal names a new global for sensed variable v: v itself the first
// time, then v_2, v_3 and so on, skipping names already declared.
func (b *builder) freshGlobal(v string) string {
	for {
		b.varUses[v]++
		name := v
		if n := b.varUses[v]; n > 1 {
			name = fmt.Sprintf("%s_%d", v, n)
		}
		if !b.declared[name] && !b.taskSet[name] {
			b.declared[name] = true
			b.globals = append(b.globals, name)
			return name
		}
	}
}
