// Package executor defines the request/result types shared by every execution
// backend and the interfaces the worker uses to host them.
//
// BACKENDS:
// A backend is anything that can turn C source text plus stdin into an
// ExecutionResult. Three live under this directory:
//   - heuristic: the local pattern-matching simulator (default)
//   - judge0:    a remote Judge0 API (submit → poll → decode)
//   - docker:    pre-warmed gcc containers
//
// None of them is called directly by HTTP handlers. They are hosted by a
// worker (internal/executor/worker) which the bridge (internal/executor/bridge)
// talks to over channels.
package executor

import (
	"context"
	"time"
)

// ExecutionRequest is one run of one piece of source text.
type ExecutionRequest struct {
	Code  string `json:"code"`
	Stdin string `json:"stdin"`
}

// ExecutionResult represents the output and status of the code execution.
//
// CompileOutput is set only when the backend can tell that the failure happened
// before the program ran (a gcc error, Judge0 compile_output, or the simulator's
// syntax check). Callers that only care about terminal output can ignore it.
type ExecutionResult struct {
	Stdout        string        `json:"stdout"`
	Stderr        string        `json:"stderr"`
	ExitCode      int           `json:"exitCode"`
	Duration      time.Duration `json:"duration"`
	CompileOutput string        `json:"compileOutput,omitempty"`
}

// Succeeded reports whether the program compiled and exited with status 0.
func (r *ExecutionResult) Succeeded() bool {
	return r.ExitCode == 0 && r.CompileOutput == ""
}

// Executor represents the core interface for running code.
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error)
}

// Initializer is implemented by backends that need a warm-up step (pulling an
// image, filling a pool) before they can serve the first request.
type Initializer interface {
	Init(ctx context.Context) error
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error)

// Execute calls f(ctx, req).
func (f ExecutorFunc) Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error) {
	return f(ctx, req)
}
