package automaton

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/missionplan/internal/runner"
)

// DefaultTranslatorPath is the Spot command used when none is configured.
const DefaultTranslatorPath = "ltl2tgba"

// TranslateError reports a formula the translator rejected. The output is
// the translator's diagnostic, suitable as corrective feedback.
type TranslateError struct {
	Formula string
	Output  string
}

func (e *TranslateError) Error() string {
	return fmt.Sprintf("automaton: translator rejected %q: %s", e.Formula, strings.TrimSpace(e.Output))
}

// ExecTranslator runs Spot's ltl2tgba to build a state-based Büchi
// automaton in HOA format.
type ExecTranslator struct {
	Path   string
	Runner runner.Runner
}

var _ Translator = (*ExecTranslator)(nil)

// NewExecTranslator creates a translator invoking the binary at path.
func NewExecTranslator(path string, r runner.Runner) *ExecTranslator {
	if path == "" {
		path = DefaultTranslatorPath
	}
	if r == nil {
		r = runner.NewOSRunner()
	}
	return &ExecTranslator{Path: path, Runner: r}
}

// Translate runs the translator. A nonzero exit is a *TranslateError; a
// failure to start the process is returned as-is.
func (t *ExecTranslator) Translate(ctx context.Context, formula string) (*Automaton, error) {
	res, err := t.Runner.Run(ctx, "", t.Path, "-B", "-H", "-f", formula)
	if err != nil {
		return nil, fmt.Errorf("automaton: run %s: %w", t.Path, err)
	}
	if res.ExitCode != 0 {
		return nil, &TranslateError{Formula: formula, Output: res.Combined()}
	}
	a, err := ParseHOA(string(res.Stdout))
	if err != nil {
		return nil, fmt.Errorf("automaton: translate %q: %w", formula, err)
	}
	return a, nil
}
