package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/coderunner/internal/apperror"
	"github.com/sakif/coderunner/internal/model"
	"github.com/sakif/coderunner/internal/problems"
	"github.com/sakif/coderunner/internal/repository"
)

// ProblemService serves the practice catalog.
type ProblemService struct {
	repo   repository.ProblemRepository
	logger *slog.Logger
}

func NewProblemService(repo repository.ProblemRepository, logger *slog.Logger) *ProblemService {
	return &ProblemService{repo: repo, logger: logger}
}

// Seed inserts each catalog problem that is not stored yet. Problems already
// in the database are left alone so admin edits survive a restart.
func (s *ProblemService) Seed(ctx context.Context, catalog []model.Problem) (int, error) {
	inserted := 0
	for i := range catalog {
		p := &catalog[i]
		_, err := s.repo.GetProblem(ctx, p.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, apperror.ErrNotFound) {
			return inserted, fmt.Errorf("seeding problem %s: %w", p.ID, err)
		}
		if err := s.repo.UpsertProblem(ctx, p); err != nil {
			return inserted, fmt.Errorf("seeding problem %s: %w", p.ID, err)
		}
		inserted++
	}

	if inserted > 0 {
		s.logger.Info("problems seeded", slog.Int("inserted", inserted), slog.Int("catalog", len(catalog)))
	}
	return inserted, nil
}

// List returns the problems whose title contains query (case-insensitive)
// and, when difficulty is set, that have that difficulty.
func (s *ProblemService) List(ctx context.Context, query, difficulty string) ([]model.Problem, error) {
	filter := repository.ProblemFilter{Query: strings.TrimSpace(query)}

	if difficulty = strings.ToLower(strings.TrimSpace(difficulty)); difficulty != "" {
		d := model.Difficulty(difficulty)
		if !d.Valid() {
			return nil, apperror.ValidationFailed("difficulty",
				fmt.Sprintf("difficulty must be easy, medium or hard, got %q", difficulty))
		}
		filter.Difficulty = d
	}

	list, err := s.repo.ListProblems(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing problems: %w", err)
	}
	return list, nil
}

func (s *ProblemService) Get(ctx context.Context, id string) (*model.Problem, error) {
	id = strings.TrimSpace(id)
	if !problems.IsSlug(id) {
		return nil, apperror.ValidationFailed("id", "problem ID must be a lowercase slug")
	}
	return s.repo.GetProblem(ctx, id)
}

// Upsert stores p under id. The id in the path wins over the body's.
func (s *ProblemService) Upsert(ctx context.Context, id string, p *model.Problem) (*model.Problem, error) {
	p.ID = strings.TrimSpace(id)
	p.Title = strings.TrimSpace(p.Title)
	p.Difficulty = model.Difficulty(strings.ToLower(string(p.Difficulty)))

	if err := problems.Validate(p); err != nil {
		return nil, apperror.ValidationFailed("problem", err.Error())
	}
	if err := ValidateSource(p.InitialCode, ""); err != nil {
		return nil, err
	}

	if err := s.repo.UpsertProblem(ctx, p); err != nil {
		return nil, fmt.Errorf("saving problem %s: %w", p.ID, err)
	}

	s.logger.Info("problem saved", slog.String("id", p.ID), slog.Int("testCases", len(p.TestCases)))
	return p, nil
}

func (s *ProblemService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if !problems.IsSlug(id) {
		return apperror.ValidationFailed("id", "problem ID must be a lowercase slug")
	}
	if err := s.repo.DeleteProblem(ctx, id); err != nil {
		return err
	}
	s.logger.Info("problem deleted", slog.String("id", id))
	return nil
}
