// Package backend builds the execution backend named by configuration and,
// when a cache is configured, wraps it in the result cache.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/coderunner/internal/cache"
	"github.com/sakif/coderunner/internal/config"
	"github.com/sakif/coderunner/internal/executor"
	"github.com/sakif/coderunner/internal/executor/docker"
	"github.com/sakif/coderunner/internal/executor/heuristic"
	"github.com/sakif/coderunner/internal/executor/judge0"
)

// redisPrefix namespaces every key this program writes.
const redisPrefix = "coderunner:"

// New returns the backend for cfg.Backend. ctx bounds only the connection
// checks made here (Redis ping); slow warm-up such as an image pull happens
// later in the worker's init.
func New(ctx context.Context, cfg config.Runner, cacheCfg config.Cache, logger *slog.Logger) (executor.Executor, error) {
	exec, namespace, err := build(cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := newStore(ctx, cacheCfg)
	if err != nil {
		if c, ok := exec.(interface{ Close() error }); ok {
			_ = c.Close()
		}
		return nil, err
	}
	if store == nil {
		return exec, nil
	}

	logger.Info("run cache enabled",
		slog.String("mode", cacheCfg.Mode),
		slog.Duration("ttl", cacheCfg.TTL),
	)
	return cache.Wrap(exec, store, cacheCfg.TTL, namespace, logger), nil
}

// build returns the bare backend and a cache namespace that changes whenever
// the same source could produce different output.
func build(cfg config.Runner, logger *slog.Logger) (executor.Executor, string, error) {
	switch cfg.Backend {
	case config.BackendHeuristic, "":
		return heuristic.New(), config.BackendHeuristic, nil

	case config.BackendJudge0:
		client := judge0.New(judge0.Config{
			BaseURL:    cfg.Judge0URL,
			APIKey:     cfg.Judge0APIKey,
			Host:       cfg.Judge0Host,
			LanguageID: cfg.Judge0LanguageID,

			PollInterval: cfg.Judge0PollInterval,
			MaxAttempts:  cfg.Judge0MaxAttempts,
		}, logger)
		if cfg.Judge0APIKey == "" {
			logger.Warn("JUDGE0_API_KEY not set, runs are simulated")
		}
		if budget := judge0Budget(cfg); cfg.Timeout < budget {
			logger.Warn("RUNNER_TIMEOUT is shorter than the Judge0 poll budget",
				slog.Duration("timeout", cfg.Timeout),
				slog.Duration("pollBudget", budget),
			)
		}
		namespace := fmt.Sprintf("%s:%s:%d", config.BackendJudge0, cfg.Judge0URL, cfg.Judge0LanguageID)
		if cfg.Judge0APIKey == "" {
			namespace += ":simulated"
		}
		return client, namespace, nil

	case config.BackendDocker:
		dc := docker.DefaultConfig()
		if cfg.DockerImage != "" {
			dc.Image = cfg.DockerImage
		}
		if cfg.DockerPoolSize > 0 {
			dc.PoolSize = cfg.DockerPoolSize
		}
		dc.Timeout = sandboxTimeout(cfg.Timeout)

		exec, err := docker.New(dc, logger)
		if err != nil {
			return nil, "", err
		}
		return exec, config.BackendDocker + ":" + dc.Image, nil
	}

	return nil, "", fmt.Errorf("backend: unknown backend %q", cfg.Backend)
}

// judge0Budget is the poll budget the client will actually use; unset fields
// fall back to the client's defaults.
func judge0Budget(cfg config.Runner) time.Duration {
	interval, attempts := cfg.Judge0PollInterval, cfg.Judge0MaxAttempts
	if interval <= 0 {
		interval = judge0.DefaultPollInterval
	}
	if attempts <= 0 {
		attempts = judge0.DefaultMaxAttempts
	}
	return interval * time.Duration(attempts)
}

// sandboxTimeout leaves the bridge a margin so a runaway program is reported
// by the sandbox (exit 124) rather than as a bridge timeout.
func sandboxTimeout(runTimeout time.Duration) time.Duration {
	if runTimeout <= 0 {
		return docker.DefaultConfig().Timeout
	}
	return runTimeout * 8 / 10
}

func newStore(ctx context.Context, cfg config.Cache) (cache.Store, error) {
	switch cfg.Mode {
	case config.CacheNone, "":
		return nil, nil
	case config.CacheMemory:
		return cache.NewMemory(0), nil
	case config.CacheRedis:
		return cache.NewRedis(ctx, cfg.RedisURL, redisPrefix)
	}
	return nil, fmt.Errorf("backend: unknown cache mode %q", cfg.Mode)
}
