// Package judge runs a submission against a problem's test cases and decides
// a verdict.
//
// Test cases run concurrently (bounded by Parallelism) through any
// executor.Executor, normally the bridge. The overall verdict is that of the
// lowest-indexed failing case, so the answer does not depend on which case
// finished first.
package judge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/coderunner/internal/apperror"
	"github.com/sakif/coderunner/internal/executor"
	"github.com/sakif/coderunner/internal/model"
)

// timeoutExitCode is what sandboxed backends report for a killed run.
const timeoutExitCode = 124

// Report is the outcome of judging one submission.
type Report struct {
	Verdict model.Verdict
	Passed  int
	Total   int
	Cases   []model.CaseResult
}

// Judge evaluates code against test cases.
type Judge struct {
	exec        executor.Executor
	parallelism int
	logger      *slog.Logger
}

// New returns a Judge that runs at most parallelism cases at once.
func New(exec executor.Executor, parallelism int, logger *slog.Logger) *Judge {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Judge{
		exec:        exec,
		parallelism: parallelism,
		logger:      logger.With(slog.String("component", "judge")),
	}
}

// Evaluate runs code against every test case of p. Execution failures are
// folded into per-case verdicts; the only error returned is ctx's.
func (j *Judge) Evaluate(ctx context.Context, p *model.Problem, code string) (*Report, error) {
	cases := make([]model.CaseResult, len(p.TestCases))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.parallelism)
	for i, tc := range p.TestCases {
		g.Go(func() error {
			cases[i] = j.runCase(gctx, i, tc, code)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{
		Verdict: model.VerdictAccepted,
		Total:   len(cases),
		Cases:   cases,
	}
	for _, c := range cases {
		if c.Verdict == model.VerdictAccepted {
			report.Passed++
		} else if report.Verdict == model.VerdictAccepted {
			report.Verdict = c.Verdict
		}
	}

	j.logger.Info("judged",
		slog.String("problem", p.ID),
		slog.String("verdict", string(report.Verdict)),
		slog.Int("passed", report.Passed),
		slog.Int("total", report.Total))
	return report, nil
}

func (j *Judge) runCase(ctx context.Context, index int, tc model.TestCase, code string) model.CaseResult {
	cr := model.CaseResult{
		Index:    index,
		Input:    tc.Input,
		Expected: tc.ExpectedOutput,
	}

	start := time.Now()
	res, err := j.exec.Execute(ctx, executor.ExecutionRequest{Code: code, Stdin: tc.Input})
	cr.TimeMS = time.Since(start).Milliseconds()

	if err != nil {
		cr.Stderr = err.Error()
		if errors.Is(err, apperror.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			cr.Verdict = model.VerdictTimeLimitExceeded
		} else {
			cr.Verdict = model.VerdictInternalError
			j.logger.Warn("test case could not run", slog.Int("case", index), slog.String("error", err.Error()))
		}
		return cr
	}

	cr.Actual = res.Stdout
	cr.Stderr = res.Stderr
	cr.ExitCode = res.ExitCode
	cr.Verdict = Classify(res, tc.ExpectedOutput)
	return cr
}

// Classify maps one execution result to a verdict.
func Classify(res *executor.ExecutionResult, expected string) model.Verdict {
	switch {
	case res.CompileOutput != "":
		return model.VerdictCompilationError
	case res.ExitCode == timeoutExitCode:
		return model.VerdictTimeLimitExceeded
	case res.ExitCode != 0:
		return model.VerdictRuntimeError
	case CompareOutputs(res.Stdout, expected):
		return model.VerdictAccepted
	default:
		return model.VerdictWrongAnswer
	}
}
