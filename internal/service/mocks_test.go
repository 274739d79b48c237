package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/sakif/coderunner/internal/apperror"
	"github.com/sakif/coderunner/internal/model"
	"github.com/sakif/coderunner/internal/repository"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockSnippetRepo keeps snippets in a map and hands out copies.
type mockSnippetRepo struct {
	snippets map[string]*model.Snippet
	nextID   int
	failList error
}

func newMockSnippetRepo() *mockSnippetRepo {
	return &mockSnippetRepo{snippets: make(map[string]*model.Snippet)}
}

func (m *mockSnippetRepo) Create(_ context.Context, snippet *model.Snippet) error {
	m.nextID++
	snippet.ID = fmt.Sprintf("mock-%d", m.nextID)
	stored := *snippet
	m.snippets[snippet.ID] = &stored
	return nil
}

func (m *mockSnippetRepo) GetByID(_ context.Context, id string) (*model.Snippet, error) {
	snippet, ok := m.snippets[id]
	if !ok {
		return nil, apperror.NotFound("snippet", id)
	}
	result := *snippet
	return &result, nil
}

func (m *mockSnippetRepo) List(_ context.Context, opts repository.ListOptions) ([]model.Snippet, error) {
	if m.failList != nil {
		return nil, m.failList
	}
	result := make([]model.Snippet, 0, len(m.snippets))
	for _, s := range m.snippets {
		result = append(result, *s)
	}
	if opts.Offset >= len(result) {
		return []model.Snippet{}, nil
	}
	result = result[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(result) {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (m *mockSnippetRepo) Update(_ context.Context, snippet *model.Snippet) error {
	if _, ok := m.snippets[snippet.ID]; !ok {
		return apperror.NotFound("snippet", snippet.ID)
	}
	stored := *snippet
	m.snippets[snippet.ID] = &stored
	return nil
}

func (m *mockSnippetRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.snippets[id]; !ok {
		return apperror.NotFound("snippet", id)
	}
	delete(m.snippets, id)
	return nil
}

// mockProblemRepo preserves insertion order like the sqlite rowid ordering.
type mockProblemRepo struct {
	order    []string
	problems map[string]model.Problem
	upserts  int
}

func newMockProblemRepo() *mockProblemRepo {
	return &mockProblemRepo{problems: make(map[string]model.Problem)}
}

func (m *mockProblemRepo) UpsertProblem(_ context.Context, p *model.Problem) error {
	m.upserts++
	if _, ok := m.problems[p.ID]; !ok {
		m.order = append(m.order, p.ID)
	}
	m.problems[p.ID] = *p
	return nil
}

func (m *mockProblemRepo) GetProblem(_ context.Context, id string) (*model.Problem, error) {
	p, ok := m.problems[id]
	if !ok {
		return nil, apperror.NotFound("problem", id)
	}
	return &p, nil
}

func (m *mockProblemRepo) ListProblems(_ context.Context, f repository.ProblemFilter) ([]model.Problem, error) {
	out := []model.Problem{}
	for _, id := range m.order {
		p := m.problems[id]
		if f.Difficulty != "" && p.Difficulty != f.Difficulty {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(f.Query)) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *mockProblemRepo) DeleteProblem(_ context.Context, id string) error {
	if _, ok := m.problems[id]; !ok {
		return apperror.NotFound("problem", id)
	}
	delete(m.problems, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
	return nil
}

// mockSubmissionRepo is safe for the judging goroutines.
type mockSubmissionRepo struct {
	mu          sync.Mutex
	submissions map[string]model.Submission
	history     map[string][]model.SubmissionStatus
	nextID      int
}

func newMockSubmissionRepo() *mockSubmissionRepo {
	return &mockSubmissionRepo{
		submissions: make(map[string]model.Submission),
		history:     make(map[string][]model.SubmissionStatus),
	}
}

func (m *mockSubmissionRepo) CreateSubmission(_ context.Context, s *model.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = fmt.Sprintf("sub-%d", m.nextID)
	m.submissions[s.ID] = *s
	m.history[s.ID] = append(m.history[s.ID], s.Status)
	return nil
}

func (m *mockSubmissionRepo) GetSubmission(_ context.Context, id string) (*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok {
		return nil, apperror.NotFound("submission", id)
	}
	return &s, nil
}

func (m *mockSubmissionRepo) UpdateSubmission(_ context.Context, s *model.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.submissions[s.ID]; !ok {
		return apperror.NotFound("submission", s.ID)
	}
	m.submissions[s.ID] = *s
	m.history[s.ID] = append(m.history[s.ID], s.Status)
	return nil
}

func (m *mockSubmissionRepo) ListSubmissions(_ context.Context, problemID string, _ repository.ListOptions) ([]model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Submission{}
	for _, s := range m.submissions {
		if s.ProblemID == problemID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSubmissionRepo) statuses(id string) []model.SubmissionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.history[id])
}
