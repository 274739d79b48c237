package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/sakif/coderunner/internal/executor"
)

// timeoutExitCode results depend on machine load, not on the program.
const timeoutExitCode = 124

// Executor serves repeated runs from a Store and forwards misses to next.
// It passes Init and Close through, so it can wrap any backend the worker hosts.
type Executor struct {
	next      executor.Executor
	store     Store
	ttl       time.Duration
	namespace string
	logger    *slog.Logger
}

// Wrap decorates next. namespace separates backends that share a store.
func Wrap(next executor.Executor, store Store, ttl time.Duration, namespace string, logger *slog.Logger) *Executor {
	return &Executor{
		next:      next,
		store:     store,
		ttl:       ttl,
		namespace: namespace,
		logger:    logger.With(slog.String("component", "cache")),
	}
}

// Key is the cache key for req on this executor's namespace.
func (e *Executor) Key(req executor.ExecutionRequest) string {
	h := sha256.New()
	h.Write([]byte(e.namespace))
	h.Write([]byte{0})
	h.Write([]byte(req.Code))
	h.Write([]byte{0})
	h.Write([]byte(req.Stdin))
	return "run:" + hex.EncodeToString(h.Sum(nil))
}

func (e *Executor) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	key := e.Key(req)

	if b, err := e.store.Get(ctx, key); err == nil {
		var res executor.ExecutionResult
		if err := json.Unmarshal(b, &res); err == nil {
			e.logger.Debug("cache hit", slog.String("key", key[:16]))
			return &res, nil
		}
	} else if !errors.Is(err, ErrMiss) {
		e.logger.Warn("cache read failed", slog.String("error", err.Error()))
	}

	res, err := e.next.Execute(ctx, req)
	if err != nil || res == nil || res.ExitCode == timeoutExitCode {
		return res, err
	}

	if b, err := json.Marshal(res); err == nil {
		if err := e.store.Set(ctx, key, b, e.ttl); err != nil {
			e.logger.Warn("cache write failed", slog.String("error", err.Error()))
		}
	}
	return res, nil
}

// Init forwards to the wrapped backend when it needs warming up.
func (e *Executor) Init(ctx context.Context) error {
	if init, ok := e.next.(executor.Initializer); ok {
		return init.Init(ctx)
	}
	return nil
}

// Close closes the store and then the wrapped backend if it is closable.
func (e *Executor) Close() error {
	err := e.store.Close()
	if c, ok := e.next.(interface{ Close() error }); ok {
		err = errors.Join(err, c.Close())
	}
	return err
}
