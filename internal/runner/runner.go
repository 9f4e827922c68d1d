// Package runner abstracts subprocess execution so the model checker and
// the LTL translator can be replaced by test doubles.
package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"sync"
)

// Result is a finished process.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Combined returns stdout followed by stderr.
func (r *Result) Combined() string {
	return string(r.Stdout) + string(r.Stderr)
}

// Runner runs external commands. A process that starts and exits nonzero
// is not an error: its exit code is in the Result. The error is reserved
// for processes that could not be run at all.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (*Result, error)
}

// OSRunner runs commands with os/exec.
type OSRunner struct {
	// Env overrides the environment (nil inherits the parent's).
	Env []string
}

var _ Runner = (*OSRunner)(nil)

// NewOSRunner creates an OSRunner.
func NewOSRunner() *OSRunner {
	return &OSRunner{}
}

// Run executes name in dir ("" for the current directory).
func (r *OSRunner) Run(ctx context.Context, dir, name string, args ...string) (*Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if r.Env != nil {
		cmd.Env = r.Env
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}
	return res, nil
}

// Call records one invocation seen by a FuncRunner.
type Call struct {
	Dir  string
	Name string
	Args []string
}

// FuncRunner is a Runner backed by a function. It records every call.
type FuncRunner struct {
	Fn func(ctx context.Context, dir, name string, args []string) (*Result, error)

	mu    sync.Mutex
	calls []Call
}

var _ Runner = (*FuncRunner)(nil)

// NewFuncRunner creates a FuncRunner.
func NewFuncRunner(fn func(ctx context.Context, dir, name string, args []string) (*Result, error)) *FuncRunner {
	return &FuncRunner{Fn: fn}
}

func (f *FuncRunner) Run(ctx context.Context, dir, name string, args ...string) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Dir: dir, Name: name, Args: append([]string(nil), args...)})
	f.mu.Unlock()
	if f.Fn == nil {
		return &Result{}, nil
	}
	return f.Fn(ctx, dir, name, args)
}

// Calls returns a copy of the recorded calls.
func (f *FuncRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}
