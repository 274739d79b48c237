package judge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/coderunner/internal/apperror"
	"github.com/sakif/coderunner/internal/executor"
	"github.com/sakif/coderunner/internal/executor/bridge"
	"github.com/sakif/coderunner/internal/executor/heuristic"
	"github.com/sakif/coderunner/internal/model"
	"github.com/sakif/coderunner/internal/problems"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func catalogProblem(t *testing.T, id string) *model.Problem {
	t.Helper()
	list, err := problems.Load()
	require.NoError(t, err)
	for i := range list {
		if list[i].ID == id {
			return &list[i]
		}
	}
	t.Fatalf("problem %s not in catalog", id)
	return nil
}

// Solutions accepted by the heuristic backend for each catalog problem.
var solutions = map[string]string{
	"sum-two-numbers": `#include <stdio.h>
int main() { int a, b; scanf("%d %d", &a, &b); printf("%d", a + b); return 0; }`,
	"hello-world": `#include <stdio.h>
int main() { printf("Hello, World!"); return 0; }`,
	"array-max": `#include <stdio.h>
int main() {
    int arr[5], max, i;
    scanf("%d %d %d %d %d", &arr[0], &arr[1], &arr[2], &arr[3], &arr[4]);
    max = arr[0];
    for (i = 1; i < 5; i = i - -1) if (arr[i] > max) max = arr[i];
    printf("%d", max);
    return 0;
}`,
	"string-reverse": `#include <stdio.h>
#include <string.h>
int main() { char str[50]; scanf("%s", str); strrev(str); printf("%s", str); return 0; }`,
	"pointer-swap": `#include <stdio.h>
void swap(int *a, int *b) { int t = *a; *a = *b; *b = t; }
int main() { int x, y; scanf("%d %d", &x, &y); swap(&x, &y); printf("%d %d", x, y); return 0; }`,
}

func TestEvaluate_CatalogSolutionsAreAccepted(t *testing.T) {
	j := New(heuristic.New(), 4, discardLogger())

	for id, code := range solutions {
		t.Run(id, func(t *testing.T) {
			p := catalogProblem(t, id)
			report, err := j.Evaluate(context.Background(), p, code)
			require.NoError(t, err)

			assert.Equal(t, model.VerdictAccepted, report.Verdict)
			assert.Equal(t, len(p.TestCases), report.Total)
			assert.Equal(t, report.Total, report.Passed)
			for i, c := range report.Cases {
				assert.Equal(t, i, c.Index)
				assert.Equal(t, p.TestCases[i].Input, c.Input)
			}
		})
	}
}

func TestEvaluate_WrongAnswer(t *testing.T) {
	j := New(heuristic.New(), 1, discardLogger())
	p := catalogProblem(t, "hello-world")

	report, err := j.Evaluate(context.Background(), p, `int main() { printf("Hello"); return 0; }`)
	require.NoError(t, err)
	assert.Equal(t, model.VerdictWrongAnswer, report.Verdict)
	assert.Equal(t, 0, report.Passed)
	assert.Equal(t, "Program finished.", report.Cases[0].Actual)
}

func TestEvaluate_CompilationError(t *testing.T) {
	j := New(heuristic.New(), 2, discardLogger())
	p := catalogProblem(t, "sum-two-numbers")

	report, err := j.Evaluate(context.Background(), p, "int main() { return 0")
	require.NoError(t, err)
	assert.Equal(t, model.VerdictCompilationError, report.Verdict)
	assert.Equal(t, 0, report.Passed)
}

func TestEvaluate_FirstFailingCaseByIndexDecides(t *testing.T) {
	// Case 1 fails slowly with a runtime error, case 2 fails fast with a
	// wrong answer; the verdict must still be case 1's.
	backend := executor.ExecutorFunc(func(_ context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
		switch req.Stdin {
		case "a":
			return &executor.ExecutionResult{Stdout: "ok"}, nil
		case "b":
			time.Sleep(30 * time.Millisecond)
			return &executor.ExecutionResult{ExitCode: 139, Stderr: "Segmentation fault"}, nil
		default:
			return &executor.ExecutionResult{Stdout: "nope"}, nil
		}
	})
	p := &model.Problem{ID: "p", TestCases: []model.TestCase{
		{Input: "a", ExpectedOutput: "ok"},
		{Input: "b", ExpectedOutput: "ok"},
		{Input: "c", ExpectedOutput: "ok"},
	}}

	report, err := New(backend, 3, discardLogger()).Evaluate(context.Background(), p, "x;")
	require.NoError(t, err)
	assert.Equal(t, model.VerdictRuntimeError, report.Verdict)
	assert.Equal(t, 1, report.Passed)
	assert.Equal(t, []model.Verdict{model.VerdictAccepted, model.VerdictRuntimeError, model.VerdictWrongAnswer},
		[]model.Verdict{report.Cases[0].Verdict, report.Cases[1].Verdict, report.Cases[2].Verdict})
}

func TestEvaluate_ExecutionErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want model.Verdict
	}{
		{"bridge timeout", apperror.Timeout("run 1", time.Second), model.VerdictTimeLimitExceeded},
		{"deadline", context.DeadlineExceeded, model.VerdictTimeLimitExceeded},
		{"not ready", apperror.Unavailable("compiler not ready"), model.VerdictInternalError},
		{"other", errors.New("boom"), model.VerdictInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := executor.ExecutorFunc(func(context.Context, executor.ExecutionRequest) (*executor.ExecutionResult, error) {
				return nil, tt.err
			})
			p := &model.Problem{ID: "p", TestCases: []model.TestCase{{Input: "", ExpectedOutput: "x"}}}

			report, err := New(backend, 1, discardLogger()).Evaluate(context.Background(), p, "x;")
			require.NoError(t, err)
			assert.Equal(t, tt.want, report.Verdict)
			assert.Equal(t, tt.err.Error(), report.Cases[0].Stderr)
		})
	}
}

func TestEvaluate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &model.Problem{ID: "p", TestCases: []model.TestCase{{Input: "", ExpectedOutput: "x"}}}
	_, err := New(heuristic.New(), 1, discardLogger()).Evaluate(ctx, p, "x;")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		res  executor.ExecutionResult
		want model.Verdict
	}{
		{"accepted", executor.ExecutionResult{Stdout: "8\n"}, model.VerdictAccepted},
		{"wrong", executor.ExecutionResult{Stdout: "9"}, model.VerdictWrongAnswer},
		{"compile", executor.ExecutionResult{CompileOutput: "error", ExitCode: 1}, model.VerdictCompilationError},
		{"timeout", executor.ExecutionResult{ExitCode: 124}, model.VerdictTimeLimitExceeded},
		{"crash", executor.ExecutionResult{Stdout: "8", ExitCode: 1}, model.VerdictRuntimeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(&tt.res, "8"))
		})
	}
}

// More cases in flight than the runner has slots: cases wait their turn and
// are still judged on their own run time.
func TestEvaluate_ParallelismAboveRunnerConcurrency(t *testing.T) {
	slowEcho := executor.ExecutorFunc(func(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
		select {
		case <-time.After(60 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return &executor.ExecutionResult{Stdout: req.Stdin}, nil
	})
	b := bridge.New(slowEcho, bridge.Config{Timeout: 100 * time.Millisecond, Concurrency: 1}, discardLogger())
	require.NoError(t, b.Initialize(context.Background()))
	defer func() { require.NoError(t, b.Shutdown(context.Background())) }()

	p := &model.Problem{
		ID:         "echo",
		Title:      "Echo",
		Difficulty: model.DifficultyEasy,
		TestCases: []model.TestCase{
			{Input: "a", ExpectedOutput: "a"},
			{Input: "b", ExpectedOutput: "b"},
			{Input: "c", ExpectedOutput: "c"},
		},
	}
	report, err := New(b, 4, discardLogger()).Evaluate(context.Background(), p, "int main(){}")
	require.NoError(t, err)

	for _, c := range report.Cases {
		assert.Equal(t, model.VerdictAccepted, c.Verdict, "case %d: %s", c.Index, c.Stderr)
	}
	assert.Equal(t, model.VerdictAccepted, report.Verdict)
	assert.Equal(t, 3, report.Passed)
}
