package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/coderunner/internal/apperror"
	"github.com/sakif/coderunner/internal/model"
	"github.com/sakif/coderunner/internal/repository"
)

func createTestSubmission(t *testing.T, db *DB, problemID string) *model.Submission {
	t.Helper()
	s := &model.Submission{ProblemID: problemID, Code: "int main(){}", Status: model.SubmissionPending}
	if err := db.CreateSubmission(context.Background(), s); err != nil {
		t.Fatalf("CreateSubmission() error = %v", err)
	}
	return s
}

func TestCreateSubmission(t *testing.T) {
	db := newTestDB(t)
	seedProblems(t, db)

	s := createTestSubmission(t, db, "pointer-swap")
	if s.ID == "" || s.CreatedAt.IsZero() {
		t.Fatalf("CreateSubmission() did not set id/created_at: %+v", s)
	}

	got, err := db.GetSubmission(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("GetSubmission() error = %v", err)
	}
	if got.Status != model.SubmissionPending || got.FinishedAt != nil || len(got.Cases) != 0 {
		t.Errorf("GetSubmission() = %+v", got)
	}
}

func TestCreateSubmission_UnknownProblem(t *testing.T) {
	db := newTestDB(t)

	err := db.CreateSubmission(context.Background(), &model.Submission{ProblemID: "nope", Status: model.SubmissionPending})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("CreateSubmission() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateSubmission(t *testing.T) {
	db := newTestDB(t)
	seedProblems(t, db)
	s := createTestSubmission(t, db, "pointer-swap")

	finished := time.Now().UTC()
	s.Status = model.SubmissionDone
	s.Verdict = model.VerdictWrongAnswer
	s.Passed, s.Total = 1, 2
	s.Cases = []model.CaseResult{
		{Index: 0, Verdict: model.VerdictAccepted, Input: "10 20", Expected: "20 10", Actual: "20 10"},
		{Index: 1, Verdict: model.VerdictWrongAnswer, Input: "-5 5", Expected: "5 -5", Actual: "20 10"},
	}
	s.FinishedAt = &finished
	if err := db.UpdateSubmission(context.Background(), s); err != nil {
		t.Fatalf("UpdateSubmission() error = %v", err)
	}

	got, err := db.GetSubmission(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("GetSubmission() error = %v", err)
	}
	if got.Verdict != model.VerdictWrongAnswer || got.Passed != 1 || got.Total != 2 {
		t.Errorf("GetSubmission() = %+v", got)
	}
	if len(got.Cases) != 2 || got.Cases[1].Actual != "20 10" {
		t.Errorf("Cases = %+v", got.Cases)
	}
	if got.FinishedAt == nil || !got.Finished() {
		t.Error("submission should be finished")
	}
}

func TestUpdateSubmission_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateSubmission(context.Background(), &model.Submission{ID: "missing"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateSubmission() error = %v, want ErrNotFound", err)
	}
}

func TestListSubmissions(t *testing.T) {
	db := newTestDB(t)
	seedProblems(t, db)
	for range 3 {
		createTestSubmission(t, db, "pointer-swap")
	}
	createTestSubmission(t, db, "array-max")

	list, err := db.ListSubmissions(context.Background(), "pointer-swap", repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListSubmissions() error = %v", err)
	}
	if len(list) != 3 {
		t.Errorf("ListSubmissions() returned %d, want 3", len(list))
	}
	for _, s := range list {
		if s.ProblemID != "pointer-swap" {
			t.Errorf("ListSubmissions() returned submission for %s", s.ProblemID)
		}
	}
}

func TestDeleteProblem_CascadesToSubmissions(t *testing.T) {
	db := newTestDB(t)
	seedProblems(t, db)
	s := createTestSubmission(t, db, "array-max")

	if err := db.DeleteProblem(context.Background(), "array-max"); err != nil {
		t.Fatalf("DeleteProblem() error = %v", err)
	}
	if _, err := db.GetSubmission(context.Background(), s.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetSubmission() after problem delete error = %v, want ErrNotFound", err)
	}
}
