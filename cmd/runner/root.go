package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/coderunner/internal/config"
	"github.com/sakif/coderunner/internal/executor/backend"
	"github.com/sakif/coderunner/internal/executor/bridge"
)

type rootOptions struct {
	backend string
	verbose bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "runner",
		Short: "Run and judge C programs",
		Long: `Run and judge C programs with the configured execution backend.

Configuration is read from the environment and .env, the same as the server.
--backend overrides RUNNER_BACKEND for one invocation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.backend, "backend", "", "execution backend: heuristic, judge0 or docker")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log backend activity to stderr")

	cmd.AddCommand(
		newRunCmd(opts),
		newJudgeCmd(opts),
		newProblemsCmd(),
		newHashPasswordCmd(),
	)
	return cmd
}

func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	switch o.backend {
	case "":
	case config.BackendHeuristic, config.BackendJudge0, config.BackendDocker:
		cfg.Runner.Backend = o.backend
	default:
		return fmt.Errorf("unknown backend %q", o.backend)
	}

	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	o.cfg = cfg
	o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

// startRunner builds the configured backend behind a bridge and waits for it
// to become ready. The caller must Shutdown the bridge.
func (o *rootOptions) startRunner(ctx context.Context) (*bridge.Bridge, error) {
	exec, err := backend.New(ctx, o.cfg.Runner, o.cfg.Cache, o.logger)
	if err != nil {
		return nil, err
	}

	b := bridge.New(exec, bridge.Config{
		Timeout:     o.cfg.Runner.Timeout,
		Concurrency: o.cfg.Runner.Concurrency,
	}, o.logger)

	initCtx, cancel := context.WithTimeout(ctx, o.cfg.Runner.InitTimeout)
	defer cancel()
	if err := b.Initialize(initCtx); err != nil {
		_ = b.Shutdown(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("starting %s backend: %w", o.cfg.Runner.Backend, err)
	}
	return b, nil
}

// readSource reads the file named by args[0], or standard input when there
// is no argument or it is "-".
func readSource(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading source from stdin: %w", err)
		}
		return string(b), nil
	}

	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(b), nil
}
