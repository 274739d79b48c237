package handler

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/sakif/coderunner/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

const scratchCode = `#include <stdio.h>

int main() {
    printf("Hello, World!");
    return 0;
}
`

// ProblemLister is the read side of the problem service the page needs.
type ProblemLister interface {
	List(ctx context.Context, query, difficulty string) ([]model.Problem, error)
}

// RunnerPageHandler renders the runner UI. All interaction after the first
// render goes through the JSON API.
type RunnerPageHandler struct {
	templates *template.Template
	problems  ProblemLister
	logger    *slog.Logger
}

func NewRunnerPageHandler(problems ProblemLister, logger *slog.Logger) (*RunnerPageHandler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/runner.html")
	if err != nil {
		return nil, err
	}
	return &RunnerPageHandler{templates: tmpl, problems: problems, logger: logger}, nil
}

type runnerPage struct {
	Title       string
	InitialCode string
	Problems    []model.Problem
}

func (h *RunnerPageHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	list, err := h.problems.List(r.Context(), "", "")
	if err != nil {
		// The scratch pad still works without the catalog.
		h.logger.Warn("loading problems for runner page", slog.String("error", err.Error()))
		list = nil
	}

	// Buffered so a failed render is still a clean 500.
	var buf bytes.Buffer
	data := runnerPage{Title: "C Code Runner", InitialCode: scratchCode, Problems: list}
	if err := h.templates.ExecuteTemplate(&buf, "base", data); err != nil {
		h.logger.Error("failed to render template", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
