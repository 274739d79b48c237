// Package bridge is the process-wide handle on the execution worker.
//
// A Bridge is created once in main and injected wherever code needs to run.
// It spawns the worker on Initialize, tracks whether the worker is usable, and
// turns the worker's message stream back into ordinary call/return:
//
//	res, err := b.Run(ctx, code, stdin)
//
// Every Run gets its own request ID. Replies are routed to the waiting caller
// by that ID, so any number of runs can be in flight at once.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sakif/coderunner/internal/apperror"
	"github.com/sakif/coderunner/internal/executor"
	"github.com/sakif/coderunner/internal/executor/worker"
)

const (
	DefaultTimeout = 10 * time.Second

	cancelPostTimeout = time.Second
)

var (
	// ErrNotReady is returned by Run when the worker has not reported ready.
	ErrNotReady = apperror.Unavailable("compiler not ready")
	// ErrShutdown is returned to callers still waiting when Shutdown runs.
	ErrShutdown = apperror.Unavailable("code runner is shutting down")
)

// Config controls how the bridge drives its worker.
type Config struct {
	// Timeout bounds a single run once the worker has started it. Zero means
	// DefaultTimeout.
	Timeout time.Duration
	// Concurrency is passed to the worker. Zero means one compile at a time.
	Concurrency int
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{Timeout: DefaultTimeout, Concurrency: 1}
}

// State is a snapshot of the worker's readiness.
type State struct {
	Ready        bool   `json:"ready"`
	Initializing bool   `json:"initializing"`
	LastError    string `json:"error,omitempty"`
}

// Bridge owns exactly one worker for its lifetime.
type Bridge struct {
	backend executor.Executor
	cfg     Config
	logger  *slog.Logger

	initOnce     sync.Once
	initDone     chan struct{}
	dispatchDone chan struct{}
	w            *worker.Worker

	mu      sync.Mutex
	state   State
	pending map[uint64]chan worker.Message
	closed  bool

	nextID atomic.Uint64
}

// New returns a bridge for backend. Nothing is spawned until Initialize.
func New(backend executor.Executor, cfg Config, logger *slog.Logger) *Bridge {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Bridge{
		backend:      backend,
		cfg:          cfg,
		logger:       logger.With(slog.String("component", "bridge")),
		initDone:     make(chan struct{}),
		dispatchDone: make(chan struct{}),
		pending:      make(map[uint64]chan worker.Message),
	}
}

// Initialize spawns the worker and waits until it reports ready or fails.
// Only the first call spawns; later calls wait for the same outcome. After
// Shutdown it returns ErrShutdown.
func (b *Bridge) Initialize(ctx context.Context) error {
	b.initOnce.Do(b.spawn)

	select {
	case <-b.initDone:
	case <-ctx.Done():
		return ctx.Err()
	}

	b.mu.Lock()
	closed, lastError := b.closed, b.state.LastError
	b.mu.Unlock()

	switch {
	case closed:
		return ErrShutdown
	case lastError != "":
		return fmt.Errorf("bridge: initialize worker: %s", lastError)
	}
	return nil
}

func (b *Bridge) spawn() {
	b.setState(func(s *State) { s.Initializing = true })

	w, err := worker.New(b.backend, worker.Config{Concurrency: b.cfg.Concurrency}, b.logger)
	if err != nil {
		b.logger.Error("spawning worker", slog.String("error", err.Error()))
		b.setState(func(s *State) {
			s.Initializing = false
			s.LastError = err.Error()
		})
		close(b.initDone)
		close(b.dispatchDone)
		return
	}

	b.w = w
	w.Start()
	go b.dispatch()

	if err := w.Post(context.Background(), worker.Message{Type: worker.TypeInit}); err != nil {
		b.finishInit(err.Error())
	}
}

// dispatch routes every worker message until the worker closes its outbox.
func (b *Bridge) dispatch() {
	defer close(b.dispatchDone)

	for msg := range b.w.Messages() {
		switch {
		case msg.Type == worker.TypeReady:
			b.logger.Info("compiler ready")
			b.finishInit("")
		case msg.Type == worker.TypeError && msg.ID == 0:
			b.finishInit(msg.Error)
		default:
			b.deliver(msg)
		}
	}
}

func (b *Bridge) finishInit(lastError string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state.Initializing = false
	b.state.Ready = lastError == "" && !b.closed
	b.state.LastError = lastError

	select {
	case <-b.initDone:
	default:
		close(b.initDone)
	}
}

// deliver hands msg to the waiting Run. The send happens under the lock so it
// cannot race Shutdown closing the channel; the channel has room for the
// started notice and the final reply, so it never blocks.
func (b *Bridge) deliver(msg worker.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.pending[msg.ID]
	if !ok {
		b.logger.Debug("dropping reply with no waiter", slog.Uint64("id", msg.ID))
		return
	}
	if msg.Type != worker.TypeStarted {
		delete(b.pending, msg.ID)
	}
	ch <- msg
}

// Run executes code with stdin on the worker. It fails fast with ErrNotReady
// when the worker is not ready; requests are never queued behind init.
//
// Timeout bounds the run from the moment the worker starts it. Time spent
// queued behind other runs counts only against ctx.
func (b *Bridge) Run(ctx context.Context, code, stdin string) (*executor.ExecutionResult, error) {
	id, reply, err := b.register()
	if err != nil {
		return nil, err
	}

	msg := worker.Message{Type: worker.TypeCompile, ID: id, Code: code, Stdin: stdin}
	if err := b.w.Post(ctx, msg); err != nil {
		b.forget(id)
		if errors.Is(err, worker.ErrStopped) {
			return nil, ErrShutdown
		}
		return nil, err
	}

	var (
		timer   *time.Timer
		timeout <-chan time.Time // nil, and so never ready, until the run starts
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case msg, ok := <-reply:
			if !ok {
				return nil, ErrShutdown
			}
			switch msg.Type {
			case worker.TypeStarted:
				timer = time.NewTimer(b.cfg.Timeout)
				timeout = timer.C
				continue
			case worker.TypeError:
				return nil, fmt.Errorf("bridge: run %d: %s", id, msg.Error)
			}
			return msg.Result, nil
		case <-timeout:
			b.abandon(id)
			b.logger.Warn("run timed out", slog.Uint64("id", id), slog.Duration("after", b.cfg.Timeout))
			return nil, apperror.Timeout(fmt.Sprintf("run %d", id), b.cfg.Timeout)
		case <-ctx.Done():
			b.abandon(id)
			return nil, ctx.Err()
		}
	}
}

// Execute lets the bridge stand in for an executor.Executor.
func (b *Bridge) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	return b.Run(ctx, req.Code, req.Stdin)
}

func (b *Bridge) register() (uint64, chan worker.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, nil, ErrShutdown
	}
	if !b.state.Ready {
		return 0, nil, ErrNotReady
	}

	id := b.nextID.Add(1)
	reply := make(chan worker.Message, 2)
	b.pending[id] = reply
	return id, reply, nil
}

func (b *Bridge) forget(id uint64) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

// abandon stops waiting for id and tells the worker to stop working on it.
func (b *Bridge) abandon(id uint64) {
	b.forget(id)

	ctx, cancel := context.WithTimeout(context.Background(), cancelPostTimeout)
	defer cancel()
	if err := b.w.Post(ctx, worker.Message{Type: worker.TypeCancel, ID: id}); err != nil {
		b.logger.Debug("posting cancel", slog.Uint64("id", id), slog.String("error", err.Error()))
	}
}

// State returns a copy of the current readiness state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Initialized is closed once the first Initialize has an outcome.
func (b *Bridge) Initialized() <-chan struct{} {
	return b.initDone
}

func (b *Bridge) setState(fn func(*State)) {
	b.mu.Lock()
	fn(&b.state)
	b.mu.Unlock()
}

// Shutdown fails every waiting Run with ErrShutdown and stops the worker.
// The bridge cannot be used afterwards.
func (b *Bridge) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.state.Ready = false
	for id, ch := range b.pending {
		close(ch)
		delete(b.pending, id)
	}
	b.mu.Unlock()

	// A bridge that was never initialized has no worker to stop.
	b.initOnce.Do(func() {
		close(b.initDone)
		close(b.dispatchDone)
	})

	if b.w != nil {
		b.w.Stop()
	}

	select {
	case <-b.dispatchDone:
		b.logger.Info("code runner stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
