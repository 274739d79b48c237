// Command server runs the code runner's HTTP API and UI.
//
// Configuration comes from the environment (and .env); see internal/config.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/sakif/coderunner/internal/config"
	"github.com/sakif/coderunner/internal/executor/backend"
	"github.com/sakif/coderunner/internal/executor/bridge"
	"github.com/sakif/coderunner/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	exec, err := backend.New(ctx, cfg.Runner, cfg.Cache, logger)
	if err != nil {
		return err
	}

	// The bridge owns exec from here on; its Shutdown closes it.
	runner := bridge.New(exec, bridge.Config{
		Timeout:     cfg.Runner.Timeout,
		Concurrency: cfg.Runner.Concurrency,
	}, logger)

	srv, err := server.New(ctx, cfg, runner, logger)
	if err != nil {
		_ = runner.Shutdown(ctx)
		return err
	}

	// Warm-up runs in the background so the UI can show "loading" meanwhile;
	// runs fail fast with 503 until it finishes.
	go func() {
		initCtx, cancel := context.WithTimeout(ctx, cfg.Runner.InitTimeout)
		defer cancel()
		if err := runner.Initialize(initCtx); err != nil {
			logger.Error("code runner failed to start", slog.String("error", err.Error()))
		}
	}()

	return srv.Start()
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
