// Package verify assembles a complete Promela model, runs Spin over it and
// interprets the outcome.
package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dusk-indust/missionplan/internal/compiler"
	"github.com/dusk-indust/missionplan/internal/ltl"
	"github.com/dusk-indust/missionplan/internal/runner"
)

// DefaultCheckerPath is the Spin command used when none is configured.
const DefaultCheckerPath = "spin"

// Outcome classifies a verification run.
type Outcome string

const (
	// Passed: the checker found no counterexample.
	Passed Outcome = "passed"
	// Violated: the checker wrote a trail; the property does not hold.
	Violated Outcome = "violated"
	// SetupFailed: the checker exited nonzero without a trail, typically a
	// syntax error in the assembled model or property.
	SetupFailed Outcome = "setup-failed"
)

// Result is the outcome of one verification.
type Result struct {
	Outcome Outcome
	// Counterexample is the trail replay output for Violated, or the raw
	// checker output for SetupFailed.
	Counterexample string
	ModelPath      string
	// TrailPath is set for Violated.
	TrailPath string
}

// Passed reports whether the property holds.
func (r *Result) Passed() bool { return r.Outcome == Passed }

// Driver runs the model checker. The zero value is not usable; use New.
type Driver struct {
	checkerPath string
	modelDir    string
	workDir     string
	runner      runner.Runner
}

// Option configures a Driver.
type Option func(*Driver)

// WithCheckerPath sets the Spin binary.
func WithCheckerPath(path string) Option {
	return func(d *Driver) {
		if path != "" {
			d.checkerPath = path
		}
	}
}

// WithWorkDir sets the directory the checker runs in, where it leaves its
// trail file. It defaults to the model directory.
func WithWorkDir(dir string) Option {
	return func(d *Driver) { d.workDir = dir }
}

// WithRunner replaces the subprocess runner.
func WithRunner(r runner.Runner) Option {
	return func(d *Driver) { d.runner = r }
}

// New creates a Driver that writes assembled models into modelDir.
func New(modelDir string, opts ...Option) *Driver {
	d := &Driver{
		checkerPath: DefaultCheckerPath,
		modelDir:    modelDir,
		runner:      runner.NewOSRunner(),
	}
	for _, o := range opts {
		o(d)
	}
	if d.workDir == "" {
		d.workDir = modelDir
	}
	return d
}

// Assemble renders the checker input: model source, aligned macros and the
// formula anchored to the initial state, as a property named "mission".
func Assemble(model *compiler.Model, macros []ltl.Macro, formula string) string {
	macros, wrapped := ltl.WrapInitial(macros, formula)
	return model.Source + "\n" + ltl.FormatMacros(macros) + "\n" + ltl.Property(ltl.DefaultPropertyName, wrapped) + "\n"
}

// Verify writes the assembled model to a fresh file and runs an exhaustive
// search over it.
//
// A trail file means a violation: the trail is moved next to the model
// and replayed, and the replay output becomes the counterexample. Without a
// trail, exit status 0 is a pass and anything else a setup failure. The
// returned error is reserved for infrastructure failures: the model file
// cannot be written or the checker cannot be started.
func (d *Driver) Verify(ctx context.Context, model *compiler.Model, macros []ltl.Macro, formula string) (*Result, error) {
	if err := os.MkdirAll(d.modelDir, 0o755); err != nil {
		return nil, fmt.Errorf("verify: create model dir: %w", err)
	}
	f, err := os.CreateTemp(d.modelDir, "mission-*.pml")
	if err != nil {
		return nil, fmt.Errorf("verify: create model file: %w", err)
	}
	modelPath, err := filepath.Abs(f.Name())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("verify: resolve model path: %w", err)
	}
	if _, err := io.WriteString(f, Assemble(model, macros, formula)); err != nil {
		f.Close()
		return nil, fmt.Errorf("verify: write model: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("verify: close model: %w", err)
	}

	res, err := d.runner.Run(ctx, d.workDir, d.checkerPath, "-search", "-a", "-O2", modelPath)
	if err != nil {
		return nil, fmt.Errorf("verify: run %s: %w", d.checkerPath, err)
	}

	trailName := filepath.Base(modelPath) + ".trail"
	produced := filepath.Join(d.workDir, trailName)
	_, statErr := os.Stat(produced)
	hasTrail := statErr == nil
	log.Printf("verify: %s exited %d, trail=%v", filepath.Base(modelPath), res.ExitCode, hasTrail)

	if !hasTrail {
		if res.ExitCode == 0 {
			return &Result{Outcome: Passed, ModelPath: modelPath}, nil
		}
		return &Result{Outcome: SetupFailed, Counterexample: res.Combined(), ModelPath: modelPath}, nil
	}

	trailPath := filepath.Join(filepath.Dir(modelPath), trailName)
	if err := relocate(produced, trailPath); err != nil {
		return nil, fmt.Errorf("verify: relocate trail: %w", err)
	}

	replay, err := d.runner.Run(ctx, filepath.Dir(modelPath), d.checkerPath, "-t", modelPath)
	if err != nil {
		return nil, fmt.Errorf("verify: replay trail: %w", err)
	}
	cex := replay.Combined()
	if strings.TrimSpace(cex) == "" {
		cex = fmt.Sprintf("counterexample trail written to %s (replay produced no output)", trailPath)
	}
	return &Result{Outcome: Violated, Counterexample: cex, ModelPath: modelPath, TrailPath: trailPath}, nil
}

// relocate moves src to dst. It falls back to copy and remove when a plain
// rename crosses filesystems.
func relocate(src, dst string) error {
	if same, err := samePath(src, dst); err == nil && same {
		return nil
	}
	if err := os.Rename(src, dst); err == nil {
		log.Printf("verify: moved trail %s -> %s", src, dst)
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	log.Printf("verify: copied trail %s -> %s", src, dst)
	return nil
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}
