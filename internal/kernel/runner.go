// Package kernel implements the execution listener that runs inside each
// sandbox container. It exposes a single operation: execute a code string
// in a fresh interpreter process with stdout and stderr captured, plus a
// liveness probe so the manager can tell "kernel not yet ready" apart from
// "container unreachable".
package kernel

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Result is the outcome of one code execution. It is always produced,
// even on failure; stderr carries the failure detail.
type Result struct {
	Type    string `json:"type"`
	Stdout  string `json:"stdout"`
	Stderr  string `json:"stderr"`
	Success bool   `json:"success"`
}

// Runner executes submitted code. The HTTP server depends on this
// interface so tests can substitute a stub.
type Runner interface {
	Run(ctx context.Context, code string) Result
}

// PythonRunner runs each submission in a fresh python interpreter process,
// so no state leaks between executions. A crash of user code can never
// take the kernel process down with it.
type PythonRunner struct {
	python  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewPythonRunner creates a runner that invokes the given interpreter
// binary with a per-run timeout.
func NewPythonRunner(python string, timeout time.Duration, logger *zap.Logger) *PythonRunner {
	if python == "" {
		python = "python3"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PythonRunner{python: python, timeout: timeout, logger: logger}
}

// Run executes code and captures its output. Interpreter exceptions are
// reported through stderr with Success=false; they are never errors of
// the kernel itself.
func (r *PythonRunner) Run(ctx context.Context, code string) Result {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.python, "-")
	cmd.Stdin = strings.NewReader(code)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	res := Result{
		Type:   "result",
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	switch {
	case err == nil:
		res.Success = true
	case runCtx.Err() == context.DeadlineExceeded:
		res.Stderr += "execution timed out"
		r.logger.Warn("execution timed out", zap.Duration("timeout", r.timeout))
	default:
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// Interpreter could not be started at all. The traceback
			// convention still holds: detail goes to stderr.
			res.Stderr += err.Error()
			r.logger.Error("interpreter launch failed", zap.Error(err))
		}
	}

	return res
}
