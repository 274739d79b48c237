package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sakif/coderunner/internal/executor"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type initBackend struct {
	executor.ExecutorFunc
	initErr error
	closed  bool
}

func (b *initBackend) Init(context.Context) error { return b.initErr }

func (b *initBackend) Close() error {
	b.closed = true
	return nil
}

func echo() executor.ExecutorFunc {
	return func(_ context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
		return &executor.ExecutionResult{Stdout: req.Stdin}, nil
	}
}

func startWorker(t *testing.T, backend executor.Executor, cfg Config) *Worker {
	t.Helper()
	w, err := New(backend, cfg, discardLogger())
	require.NoError(t, err)
	w.Start()
	t.Cleanup(w.Stop)
	return w
}

func post(t *testing.T, w *Worker, msg Message) {
	t.Helper()
	require.NoError(t, w.Post(context.Background(), msg))
}

func next(t *testing.T, w *Worker) Message {
	t.Helper()
	select {
	case msg, ok := <-w.Messages():
		require.True(t, ok, "outbox closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message from worker")
		return Message{}
	}
}

// reply skips the started notice and returns the compile's answer.
func reply(t *testing.T, w *Worker) Message {
	t.Helper()
	msg := next(t, w)
	if msg.Type == TypeStarted {
		return next(t, w)
	}
	return msg
}

func TestNew_RequiresBackend(t *testing.T) {
	_, err := New(nil, Config{}, discardLogger())
	assert.ErrorIs(t, err, ErrNoBackend)
}

func TestCompileBeforeInit(t *testing.T) {
	w := startWorker(t, echo(), Config{})

	post(t, w, Message{Type: TypeCompile, ID: 3, Code: "int main(){}"})
	got := next(t, w)

	assert.Equal(t, TypeResult, got.Type)
	assert.Equal(t, uint64(3), got.ID)
	require.NotNil(t, got.Result)
	assert.Equal(t, NotInitializedMessage, got.Result.Stderr)
	assert.Equal(t, 1, got.Result.ExitCode)
}

func TestInitThenCompile(t *testing.T) {
	w := startWorker(t, echo(), Config{})

	post(t, w, Message{Type: TypeInit})
	assert.Equal(t, Message{Type: TypeReady}, next(t, w))

	post(t, w, Message{Type: TypeCompile, ID: 1, Stdin: "hi"})
	assert.Equal(t, Message{Type: TypeStarted, ID: 1}, next(t, w))
	got := next(t, w)
	assert.Equal(t, TypeResult, got.Type)
	assert.Equal(t, uint64(1), got.ID)
	assert.Equal(t, "hi", got.Result.Stdout)
}

func TestInitFailure(t *testing.T) {
	backend := &initBackend{ExecutorFunc: echo(), initErr: errors.New("image missing")}
	w := startWorker(t, backend, Config{})

	post(t, w, Message{Type: TypeInit})
	got := next(t, w)
	assert.Equal(t, TypeError, got.Type)
	assert.Zero(t, got.ID)
	assert.Equal(t, "image missing", got.Error)

	post(t, w, Message{Type: TypeCompile, ID: 2})
	assert.Equal(t, NotInitializedMessage, next(t, w).Result.Stderr)
}

func TestBackendErrorBecomesErrorMessage(t *testing.T) {
	failing := executor.ExecutorFunc(func(context.Context, executor.ExecutionRequest) (*executor.ExecutionResult, error) {
		return nil, errors.New("judge unreachable")
	})
	w := startWorker(t, failing, Config{})

	post(t, w, Message{Type: TypeInit})
	next(t, w)
	post(t, w, Message{Type: TypeCompile, ID: 9})

	got := reply(t, w)
	assert.Equal(t, TypeError, got.Type)
	assert.Equal(t, uint64(9), got.ID)
	assert.Equal(t, "judge unreachable", got.Error)
}

func TestPanicIsRecovered(t *testing.T) {
	panicky := executor.ExecutorFunc(func(context.Context, executor.ExecutionRequest) (*executor.ExecutionResult, error) {
		panic("boom")
	})
	w := startWorker(t, panicky, Config{})

	post(t, w, Message{Type: TypeInit})
	next(t, w)
	post(t, w, Message{Type: TypeCompile, ID: 4})

	got := reply(t, w)
	assert.Equal(t, TypeResult, got.Type)
	assert.Equal(t, "boom", got.Result.Stderr)
	assert.Equal(t, 1, got.Result.ExitCode)
}

func TestCancelStopsInflightCompile(t *testing.T) {
	blocking := executor.ExecutorFunc(func(ctx context.Context, _ executor.ExecutionRequest) (*executor.ExecutionResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	w := startWorker(t, blocking, Config{})

	post(t, w, Message{Type: TypeInit})
	next(t, w)
	post(t, w, Message{Type: TypeCompile, ID: 5})
	post(t, w, Message{Type: TypeCancel, ID: 5})

	got := reply(t, w)
	assert.Equal(t, TypeError, got.Type)
	assert.Equal(t, uint64(5), got.ID)
}

func TestQueuedCompileStartsWhenASlotFrees(t *testing.T) {
	release := make(chan struct{})
	gated := executor.ExecutorFunc(func(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return &executor.ExecutionResult{Stdout: req.Stdin}, nil
	})
	w := startWorker(t, gated, Config{Concurrency: 1})

	post(t, w, Message{Type: TypeInit})
	next(t, w)
	post(t, w, Message{Type: TypeCompile, ID: 1, Stdin: "a"})
	post(t, w, Message{Type: TypeCompile, ID: 2, Stdin: "b"})

	assert.Equal(t, Message{Type: TypeStarted, ID: 1}, next(t, w))
	select {
	case msg := <-w.Messages():
		t.Fatalf("compile 2 reported %s while compile 1 holds the only slot", msg.Type)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	first := next(t, w)
	assert.Equal(t, uint64(1), first.ID)
	assert.Equal(t, "a", first.Result.Stdout)
	assert.Equal(t, Message{Type: TypeStarted, ID: 2}, next(t, w))
	assert.Equal(t, "b", next(t, w).Result.Stdout)
}

func TestCancelQueuedCompile(t *testing.T) {
	blocking := executor.ExecutorFunc(func(ctx context.Context, _ executor.ExecutionRequest) (*executor.ExecutionResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	w := startWorker(t, blocking, Config{Concurrency: 1})

	post(t, w, Message{Type: TypeInit})
	next(t, w)
	post(t, w, Message{Type: TypeCompile, ID: 1})
	assert.Equal(t, Message{Type: TypeStarted, ID: 1}, next(t, w))

	post(t, w, Message{Type: TypeCompile, ID: 2})
	post(t, w, Message{Type: TypeCancel, ID: 2})

	got := next(t, w)
	assert.Equal(t, TypeError, got.Type)
	assert.Equal(t, uint64(2), got.ID)
	assert.Contains(t, got.Error, "cancelled before start")
}

func TestStop(t *testing.T) {
	backend := &initBackend{ExecutorFunc: echo()}
	w, err := New(backend, Config{}, discardLogger())
	require.NoError(t, err)
	w.Start()

	w.Stop()
	w.Stop()

	_, open := <-w.Messages()
	assert.False(t, open)
	assert.True(t, backend.closed)
	assert.ErrorIs(t, w.Post(context.Background(), Message{Type: TypeInit}), ErrStopped)
}
