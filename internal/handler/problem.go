package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/coderunner/internal/model"
	"github.com/sakif/coderunner/internal/service"
)

// ProblemHandler serves the practice catalog and judged submissions.
type ProblemHandler struct {
	problems    *service.ProblemService
	submissions *service.SubmissionService
	logger      *slog.Logger
}

func NewProblemHandler(problems *service.ProblemService, submissions *service.SubmissionService, logger *slog.Logger) *ProblemHandler {
	return &ProblemHandler{problems: problems, submissions: submissions, logger: logger}
}

// HandleList serves GET /api/problems?q=&difficulty=.
func (h *ProblemHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.problems.List(r.Context(), q.Get("q"), q.Get("difficulty"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ProblemHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.problems.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandlePut creates or replaces a problem. Admin only.
func (h *ProblemHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	var p model.Problem
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, err)
		return
	}

	saved, err := h.problems.Upsert(r.Context(), chi.URLParam(r, "id"), &p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// HandleDelete removes a problem and, by cascade, its submissions. Admin only.
func (h *ProblemHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.problems.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSubmit accepts {code} and answers 202 with the pending submission.
// Clients poll Location until status is done or failed.
func (h *ProblemHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	sub, err := h.submissions.Submit(r.Context(), chi.URLParam(r, "id"), req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/api/submissions/"+sub.ID)
	writeJSON(w, http.StatusAccepted, sub)
}

// HandleListSubmissions serves GET /api/problems/{id}/submissions.
func (h *ProblemHandler) HandleListSubmissions(w http.ResponseWriter, r *http.Request) {
	list, err := h.submissions.List(r.Context(), chi.URLParam(r, "id"), queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ProblemHandler) HandleGetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := h.submissions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
