// Package worker hosts one execution backend on its own goroutines and talks
// to the rest of the program only through Messages.
//
// LIFECYCLE:
//
//	New → Start → Post(init) → (ready | error) → Post(compile)… → Stop
//
// The worker never touches caller state. Every request arrives as a Message on
// the inbox and every answer leaves as a Message on the outbox, tagged with the
// request's ID. Matching answers to callers is the owner's job (see the bridge
// package).
//
// CONCURRENCY:
// Messages are read by a single loop goroutine. Compiles run on an errgroup and
// are admitted by a weighted semaphore sized by Config.Concurrency, so a queued
// compile can still be cancelled before it starts. A compile that gets through
// emits a started message before its result, which lets the owner time the run
// itself rather than the wait in the queue. Concurrency 1 reproduces the
// one-at-a-time behaviour of a browser Web Worker.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sakif/coderunner/internal/executor"
)

var (
	ErrNoBackend = errors.New("worker: backend is required")
	ErrStopped   = errors.New("worker: stopped")
)

// NotInitializedMessage is the stderr of a compile that arrives before init.
const NotInitializedMessage = "Compiler not initialized"

// Config sizes the worker.
type Config struct {
	// Concurrency is the number of compiles allowed to run at once.
	Concurrency int
	// Buffer is the capacity of the inbox and outbox channels.
	Buffer int
}

// Worker owns a backend and serves Messages.
type Worker struct {
	backend executor.Executor
	logger  *slog.Logger

	inbox  chan Message
	outbox chan Message

	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group
	sem    *semaphore.Weighted

	mu       sync.Mutex
	inflight map[uint64]context.CancelFunc

	// initialized is read and written only by the loop goroutine.
	initialized bool

	started  atomic.Bool
	loopDone chan struct{}
	stopOnce sync.Once
}

// New creates a worker for backend. The worker does nothing until Start.
func New(backend executor.Executor, cfg Config, logger *slog.Logger) (*Worker, error) {
	if backend == nil {
		return nil, ErrNoBackend
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 16
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		backend:  backend,
		logger:   logger.With(slog.String("component", "worker")),
		inbox:    make(chan Message, cfg.Buffer),
		outbox:   make(chan Message, cfg.Buffer),
		ctx:      ctx,
		cancel:   cancel,
		sem:      semaphore.NewWeighted(int64(cfg.Concurrency)),
		inflight: make(map[uint64]context.CancelFunc),
		loopDone: make(chan struct{}),
	}, nil
}

// Start launches the message loop. Calling it more than once is a no-op.
func (w *Worker) Start() {
	if w.started.CompareAndSwap(false, true) {
		go w.loop()
	}
}

// Post hands msg to the worker. It blocks only while the inbox is full.
func (w *Worker) Post(ctx context.Context, msg Message) error {
	if w.ctx.Err() != nil {
		return ErrStopped
	}
	select {
	case w.inbox <- msg:
		return nil
	case <-w.ctx.Done():
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Messages is the outbox. It is closed once the worker has stopped and every
// compile goroutine has returned.
func (w *Worker) Messages() <-chan Message {
	return w.outbox
}

// Stop cancels in-flight compiles, waits for the worker's goroutines and
// closes the backend if it is an io.Closer. Safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.cancel()
		if w.started.Load() {
			<-w.loopDone
		}
		if c, ok := w.backend.(io.Closer); ok {
			if err := c.Close(); err != nil {
				w.logger.Warn("closing backend", slog.String("error", err.Error()))
			}
		}
	})
}

func (w *Worker) loop() {
	defer close(w.loopDone)

	for {
		select {
		case <-w.ctx.Done():
			_ = w.group.Wait()
			close(w.outbox)
			return
		case msg := <-w.inbox:
			w.handle(msg)
		}
	}
}

func (w *Worker) handle(msg Message) {
	switch msg.Type {
	case TypeInit:
		w.init()
	case TypeCompile:
		w.compile(msg)
	case TypeCancel:
		w.mu.Lock()
		if cancel, ok := w.inflight[msg.ID]; ok {
			cancel()
		}
		w.mu.Unlock()
	default:
		w.logger.Warn("ignoring unknown message", slog.String("type", string(msg.Type)))
	}
}

// init runs on the loop goroutine: nothing else is meaningful until it is done.
func (w *Worker) init() {
	if init, ok := w.backend.(executor.Initializer); ok && !w.initialized {
		if err := init.Init(w.ctx); err != nil {
			w.logger.Error("backend init failed", slog.String("error", err.Error()))
			w.emit(Message{Type: TypeError, Error: err.Error()})
			return
		}
	}
	w.initialized = true
	w.emit(Message{Type: TypeReady})
}

func (w *Worker) compile(msg Message) {
	if !w.initialized {
		w.emit(Message{
			Type:   TypeResult,
			ID:     msg.ID,
			Result: &executor.ExecutionResult{Stderr: NotInitializedMessage, ExitCode: 1},
		})
		return
	}

	ctx, cancel := context.WithCancel(w.ctx)
	w.mu.Lock()
	w.inflight[msg.ID] = cancel
	w.mu.Unlock()

	w.group.Go(func() error {
		defer func() {
			w.mu.Lock()
			delete(w.inflight, msg.ID)
			w.mu.Unlock()
			cancel()
		}()

		if err := w.sem.Acquire(ctx, 1); err != nil {
			w.emit(Message{Type: TypeError, ID: msg.ID, Error: fmt.Sprintf("cancelled before start: %v", err)})
			return nil
		}
		defer w.sem.Release(1)

		w.emit(Message{Type: TypeStarted, ID: msg.ID})
		w.emit(w.run(ctx, msg))
		return nil
	})
}

// run calls the backend and turns its outcome, including a panic, into a reply.
func (w *Worker) run(ctx context.Context, msg Message) (reply Message) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("backend panicked", slog.Uint64("id", msg.ID), slog.Any("panic", r))
			reply = Message{
				Type:   TypeResult,
				ID:     msg.ID,
				Result: &executor.ExecutionResult{Stderr: fmt.Sprint(r), ExitCode: 1},
			}
		}
	}()

	res, err := w.backend.Execute(ctx, executor.ExecutionRequest{Code: msg.Code, Stdin: msg.Stdin})
	if err != nil {
		return Message{Type: TypeError, ID: msg.ID, Error: err.Error()}
	}
	if res == nil {
		res = &executor.ExecutionResult{}
	}
	return Message{Type: TypeResult, ID: msg.ID, Result: res}
}

func (w *Worker) emit(msg Message) {
	select {
	case w.outbox <- msg:
	case <-w.ctx.Done():
	}
}
