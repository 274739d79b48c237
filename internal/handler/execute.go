package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/coderunner/internal/executor"
	"github.com/sakif/coderunner/internal/executor/bridge"
	"github.com/sakif/coderunner/internal/service"
)

// Runner is the bridge as seen by the HTTP layer.
type Runner interface {
	executor.Executor
	State() bridge.State
}

// ExecuteHandler serves ad-hoc runs and the runner's readiness.
type ExecuteHandler struct {
	runner Runner
	logger *slog.Logger
}

func NewExecuteHandler(runner Runner, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{
		runner: runner,
		logger: logger,
	}
}

// HandleRun runs {code, stdin} and answers with the ExecutionResult. A program
// that fails to compile or exits non-zero is still a 200; only a runner that
// is not ready (503) or gave up (504) is an HTTP error.
func (h *ExecuteHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req executor.ExecutionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := service.ValidateSource(req.Code, req.Stdin); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.runner.Execute(r.Context(), req)
	if err != nil {
		h.logger.Warn("run failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	h.logger.Debug("run finished",
		slog.Int("exitCode", result.ExitCode),
		slog.Duration("duration", result.Duration),
	)
	writeJSON(w, http.StatusOK, result)
}

// HandleStatus reports {ready, initializing, error} for the readiness badge.
func (h *ExecuteHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.runner.State())
}
