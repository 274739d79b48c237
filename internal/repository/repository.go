// Package repository declares the persistence interfaces the services depend
// on. The sqlite subpackage implements all of them on one *sqlite.DB.
package repository

import (
	"context"

	"github.com/sakif/coderunner/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type SnippetRepository interface {
	Create(ctx context.Context, snippet *model.Snippet) error
	GetByID(ctx context.Context, id string) (*model.Snippet, error)
	List(ctx context.Context, opts ListOptions) ([]model.Snippet, error)
	Update(ctx context.Context, snippet *model.Snippet) error
	Delete(ctx context.Context, id string) error
}

// ProblemFilter narrows ProblemRepository.ListProblems. Zero values match all.
type ProblemFilter struct {
	// Query is a case-insensitive substring of the title.
	Query      string
	Difficulty model.Difficulty
}

type ProblemRepository interface {
	UpsertProblem(ctx context.Context, p *model.Problem) error
	GetProblem(ctx context.Context, id string) (*model.Problem, error)
	ListProblems(ctx context.Context, filter ProblemFilter) ([]model.Problem, error)
	DeleteProblem(ctx context.Context, id string) error
}

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, s *model.Submission) error
	GetSubmission(ctx context.Context, id string) (*model.Submission, error)
	UpdateSubmission(ctx context.Context, s *model.Submission) error
	// ListSubmissions returns a problem's submissions, newest first.
	ListSubmissions(ctx context.Context, problemID string, opts ListOptions) ([]model.Submission, error)
}
