// Package service holds the business rules that sit between the HTTP
// handlers and the repositories: validation, defaults, and orchestration of
// the code runner and the judge.
//
// Services return apperror values for anything the caller did wrong and wrap
// everything else with %w. They never know about HTTP.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/coderunner/internal/apperror"
	"github.com/sakif/coderunner/internal/executor"
	"github.com/sakif/coderunner/internal/model"
	"github.com/sakif/coderunner/internal/repository"
)

const (
	MaxSnippetNameLength = 100
	MaxCodeLength        = 100000
	MaxStdinLength       = 64 * 1024
	DefaultListLimit     = 20
	MaxListLimit         = 100
)

// SnippetInput is the user-editable part of a snippet.
type SnippetInput struct {
	Name        string
	Code        string
	Stdin       string
	Description string
}

// SnippetService manages saved snippets and runs them on the code runner.
type SnippetService struct {
	repo   repository.SnippetRepository
	runner executor.Executor
	logger *slog.Logger
}

// NewSnippetService wires the service. runner is normally the bridge.
func NewSnippetService(repo repository.SnippetRepository, runner executor.Executor, logger *slog.Logger) *SnippetService {
	return &SnippetService{
		repo:   repo,
		runner: runner,
		logger: logger,
	}
}

// ValidateSource enforces the size limits on source text and stdin. Every
// path that hands code to the runner goes through it.
func ValidateSource(code, stdin string) error {
	if len(code) > MaxCodeLength {
		return apperror.ValidationFailed("code",
			fmt.Sprintf("code must be %d characters or less", MaxCodeLength))
	}
	if len(stdin) > MaxStdinLength {
		return apperror.ValidationFailed("stdin",
			fmt.Sprintf("stdin must be %d bytes or less", MaxStdinLength))
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return apperror.ValidationFailed("name", "snippet name is required")
	}
	if len(name) > MaxSnippetNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("snippet name must be %d characters or less", MaxSnippetNameLength))
	}
	return nil
}

func (s *SnippetService) Create(ctx context.Context, in SnippetInput) (*model.Snippet, error) {
	name := strings.TrimSpace(in.Name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := ValidateSource(in.Code, in.Stdin); err != nil {
		return nil, err
	}

	snippet := &model.Snippet{
		Name:        name,
		Code:        in.Code,
		Stdin:       in.Stdin,
		Description: strings.TrimSpace(in.Description),
	}

	if err := s.repo.Create(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating snippet: %w", err)
	}

	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("name", snippet.Name),
	)
	return snippet, nil
}

func (s *SnippetService) GetByID(ctx context.Context, id string) (*model.Snippet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "snippet ID is required")
	}
	return s.repo.GetByID(ctx, id)
}

// List clamps limit to [1, MaxListLimit] and offset to >= 0.
func (s *SnippetService) List(ctx context.Context, limit, offset int) ([]model.Snippet, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	offset = max(offset, 0)

	snippets, err := s.repo.List(ctx, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		s.logger.Error("failed to list snippets", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing snippets: %w", err)
	}
	return snippets, nil
}

// Update replaces code, stdin and description. An empty name keeps the
// current one.
func (s *SnippetService) Update(ctx context.Context, id string, in SnippetInput) (*model.Snippet, error) {
	snippet, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		if err := validateName(name); err != nil {
			return nil, err
		}
		snippet.Name = name
	}
	if err := ValidateSource(in.Code, in.Stdin); err != nil {
		return nil, err
	}
	snippet.Code = in.Code
	snippet.Stdin = in.Stdin
	snippet.Description = strings.TrimSpace(in.Description)

	if err := s.repo.Update(ctx, snippet); err != nil {
		s.logger.Error("failed to update snippet",
			slog.String("id", snippet.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating snippet: %w", err)
	}

	s.logger.Info("snippet updated",
		slog.String("id", snippet.ID),
		slog.String("name", snippet.Name),
	)
	return snippet, nil
}

func (s *SnippetService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "snippet ID is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("snippet deleted", slog.String("id", id))
	return nil
}

// Run executes a saved snippet. A non-nil stdin replaces the saved one for
// this run only.
func (s *SnippetService) Run(ctx context.Context, id string, stdin *string) (*executor.ExecutionResult, error) {
	snippet, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	input := snippet.Stdin
	if stdin != nil {
		if err := ValidateSource("", *stdin); err != nil {
			return nil, err
		}
		input = *stdin
	}

	res, err := s.runner.Execute(ctx, executor.ExecutionRequest{Code: snippet.Code, Stdin: input})
	if err != nil {
		return nil, fmt.Errorf("running snippet %s: %w", snippet.ID, err)
	}
	return res, nil
}
