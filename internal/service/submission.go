package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sakif/coderunner/internal/apperror"
	"github.com/sakif/coderunner/internal/judge"
	"github.com/sakif/coderunner/internal/model"
	"github.com/sakif/coderunner/internal/repository"
)

// Evaluator is the part of *judge.Judge the submission service needs.
type Evaluator interface {
	Evaluate(ctx context.Context, p *model.Problem, code string) (*judge.Report, error)
}

// ErrClosed is returned by Submit once Close has been called.
var ErrClosed = apperror.Unavailable("submissions are closed")

// SubmissionService accepts code for a problem and judges it in the
// background. Callers poll Get until the submission is Finished.
type SubmissionService struct {
	subs     repository.SubmissionRepository
	problems repository.ProblemRepository
	judge    Evaluator
	logger   *slog.Logger

	// base outlives any single request; Close cancels it.
	base   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	now func() time.Time
}

func NewSubmissionService(
	subs repository.SubmissionRepository,
	problems repository.ProblemRepository,
	judge Evaluator,
	logger *slog.Logger,
) *SubmissionService {
	base, cancel := context.WithCancel(context.Background())
	return &SubmissionService{
		subs:     subs,
		problems: problems,
		judge:    judge,
		logger:   logger.With(slog.String("component", "submissions")),
		base:     base,
		cancel:   cancel,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores a pending submission and starts judging it. The returned
// submission is the pending snapshot.
func (s *SubmissionService) Submit(ctx context.Context, problemID, code string) (*model.Submission, error) {
	if strings.TrimSpace(code) == "" {
		return nil, apperror.ValidationFailed("code", "code is required")
	}
	if err := ValidateSource(code, ""); err != nil {
		return nil, err
	}

	problem, err := s.problems.GetProblem(ctx, strings.TrimSpace(problemID))
	if err != nil {
		return nil, err
	}

	sub := &model.Submission{
		ProblemID: problem.ID,
		Code:      code,
		Status:    model.SubmissionPending,
		Total:     len(problem.TestCases),
		Cases:     []model.CaseResult{},
		CreatedAt: s.now(),
	}

	// Registering with the WaitGroup under the lock keeps Close from
	// missing a goroutine that is about to start.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if err := s.subs.CreateSubmission(ctx, sub); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("creating submission: %w", err)
	}
	s.wg.Add(1)
	s.mu.Unlock()

	snapshot := *sub
	go func() {
		defer s.wg.Done()
		s.judgeSubmission(problem, sub)
	}()

	s.logger.Info("submission accepted",
		slog.String("id", snapshot.ID),
		slog.String("problem", snapshot.ProblemID),
	)
	return &snapshot, nil
}

func (s *SubmissionService) judgeSubmission(problem *model.Problem, sub *model.Submission) {
	ctx := s.base
	logger := s.logger.With(slog.String("id", sub.ID))

	sub.Status = model.SubmissionJudging
	if err := s.subs.UpdateSubmission(ctx, sub); err != nil {
		logger.Error("marking submission judging", slog.String("error", err.Error()))
	}

	report, err := s.judge.Evaluate(ctx, problem, sub.Code)
	finished := s.now()
	sub.FinishedAt = &finished

	if err != nil {
		sub.Status = model.SubmissionFailed
		sub.Error = err.Error()
		logger.Warn("judging failed", slog.String("error", err.Error()))
	} else {
		sub.Status = model.SubmissionDone
		sub.Verdict = report.Verdict
		sub.Passed = report.Passed
		sub.Total = report.Total
		sub.Cases = report.Cases
		logger.Info("submission judged",
			slog.String("verdict", string(report.Verdict)),
			slog.Int("passed", report.Passed),
			slog.Int("total", report.Total),
		)
	}

	// The final write must land even when Close cancelled judging.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.subs.UpdateSubmission(writeCtx, sub); err != nil {
		logger.Error("saving submission result", slog.String("error", err.Error()))
	}
}

func (s *SubmissionService) Get(ctx context.Context, id string) (*model.Submission, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "submission ID is required")
	}
	return s.subs.GetSubmission(ctx, id)
}

// List returns a problem's submissions, newest first.
func (s *SubmissionService) List(ctx context.Context, problemID string, limit, offset int) ([]model.Submission, error) {
	if _, err := s.problems.GetProblem(ctx, strings.TrimSpace(problemID)); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	opts := repository.ListOptions{Limit: min(limit, MaxListLimit), Offset: max(offset, 0)}

	list, err := s.subs.ListSubmissions(ctx, strings.TrimSpace(problemID), opts)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	return list, nil
}

// Close stops accepting submissions and waits for judging in progress. When
// ctx expires first, judging is cancelled; those submissions end as failed.
func (s *SubmissionService) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}
