// Package ltl handles the logic side of a mission: a block of #define
// macros plus one temporal formula written over the macro names.
package ltl

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrNoFormula is returned when logic text holds macros but no formula.
	ErrNoFormula = errors.New("ltl: no formula")
	// ErrMalformedMacro is returned for a #define line without a name or body.
	ErrMalformedMacro = errors.New("ltl: malformed macro")
)

// RawComparisonError reports a formula that compares values directly
// instead of going through a macro.
type RawComparisonError struct {
	Fragment string
}

func (e *RawComparisonError) Error() string {
	return fmt.Sprintf("ltl: formula contains raw comparison %q; move it into a #define macro", e.Fragment)
}

// DefaultPropertyName names the property when the logic text does not.
const DefaultPropertyName = "mission"

// Macro is one "#define Name (Expr)" line.
type Macro struct {
	Name string
	Expr string
}

func (m Macro) String() string {
	return fmt.Sprintf("#define %s (%s)", m.Name, m.Expr)
}

// Spec is a parsed logic specification.
type Spec struct {
	Name    string
	Macros  []Macro
	Formula string
}

// Property renders the formula as a named Spin ltl block.
func Property(name, formula string) string {
	if name == "" {
		name = DefaultPropertyName
	}
	return fmt.Sprintf("ltl %s { %s }", name, formula)
}

// FormatMacros renders macros one per line.
func FormatMacros(macros []Macro) string {
	lines := make([]string, len(macros))
	for i, m := range macros {
		lines[i] = m.String()
	}
	return strings.Join(lines, "\n")
}

// String renders the specification back to logic text.
func (s *Spec) String() string {
	return FormatMacros(s.Macros) + "\n" + Property(s.Name, s.Formula)
}

var (
	defineRe   = regexp.MustCompile(`^#define\s+([A-Za-z_][A-Za-z0-9_]*)\s+(.+)$`)
	propertyRe = regexp.MustCompile(`(?s)^ltl\s*([A-Za-z_][A-Za-z0-9_]*)?\s*\{(.*)\}$`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// Parse reads logic text: #define lines (a trailing backslash continues a
// line) followed by a formula, optionally wrapped in "ltl name { ... }".
func Parse(text string) (*Spec, error) {
	var macros []Macro
	var formula []string

	lines := joinContinuations(strings.Split(text, "\n"))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if strings.HasPrefix(line, "#define") {
			m := defineRe.FindStringSubmatch(line)
			if m == nil {
				return nil, fmt.Errorf("%w: %q", ErrMalformedMacro, line)
			}
			expr := stripOuterParens(strings.TrimSpace(m[2]))
			if expr == "" {
				return nil, fmt.Errorf("%w: %q has an empty body", ErrMalformedMacro, m[1])
			}
			macros = append(macros, Macro{Name: m[1], Expr: expr})
			continue
		}
		formula = append(formula, line)
	}

	spec := &Spec{Name: DefaultPropertyName, Macros: macros}
	body := strings.TrimSpace(strings.Join(formula, " "))
	if m := propertyRe.FindStringSubmatch(body); m != nil {
		if m[1] != "" {
			spec.Name = m[1]
		}
		body = m[2]
	}
	body = strings.TrimSpace(spaceRe.ReplaceAllString(body, " "))
	if body == "" {
		return nil, ErrNoFormula
	}
	if frag := rawComparison(body); frag != "" {
		return nil, &RawComparisonError{Fragment: frag}
	}
	spec.Formula = body
	return spec, nil
}

func joinContinuations(lines []string) []string {
	var out []string
	var cur strings.Builder
	for _, l := range lines {
		trimmed := strings.TrimRight(l, " \t\r")
		if strings.HasSuffix(trimmed, `\`) {
			cur.WriteString(strings.TrimSuffix(trimmed, `\`))
			cur.WriteString(" ")
			continue
		}
		cur.WriteString(trimmed)
		out = append(out, cur.String())
		cur.Reset()
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// stripOuterParens removes one pair of parentheses enclosing the whole
// expression.
func stripOuterParens(s string) string {
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return s
	}
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return s
			}
		}
	}
	return strings.TrimSpace(s[1 : len(s)-1])
}

var (
	temporalArrowRe = regexp.MustCompile(`<->|->|<>`)
	comparatorRe    = regexp.MustCompile(`==|!=|<=|>=|<|>`)
	rawOperandRe    = regexp.MustCompile(`[A-Za-z0-9_.]*\s*(?:==|!=|<=|>=|<|>)\s*[A-Za-z0-9_.]*`)
)

// stripArrows blanks out implication, equivalence and eventually operators
// so the remaining angle brackets are comparisons.
func stripArrows(s string) string {
	return temporalArrowRe.ReplaceAllStringFunc(s, func(m string) string {
		return strings.Repeat(" ", len(m))
	})
}

func rawComparison(formula string) string {
	cleaned := stripArrows(formula)
	if !comparatorRe.MatchString(cleaned) {
		return ""
	}
	return strings.TrimSpace(rawOperandRe.FindString(cleaned))
}
