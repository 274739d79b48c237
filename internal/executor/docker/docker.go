// Package docker compiles and runs C programs inside throwaway gcc containers.
//
// Each run takes one pre-warmed container from the Pool, execs two commands in
// it (gcc, then the binary) and destroys it. Source text and stdin are streamed
// over the exec's stdin, so nothing is ever written on the host.
package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/sakif/coderunner/internal/executor"
)

const (
	// TimeoutExitCode mirrors coreutils timeout(1).
	TimeoutExitCode = 124
	timeoutMessage  = "Execution timed out."

	sourcePath = "/tmp/main.c"
	binaryPath = "/tmp/main"
)

// Executor runs C source in Docker. It needs Init before the first Execute.
type Executor struct {
	cli    *client.Client
	config Config
	logger *slog.Logger
	pool   *Pool
}

// New connects to the Docker daemon from the environment (DOCKER_HOST etc).
// It does not pull anything; see Init.
func New(cfg Config, logger *slog.Logger) (*Executor, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker: create client: %w", err)
	}

	logger = logger.With(slog.String("backend", "docker"))
	return &Executor{
		cli:    cli,
		config: cfg,
		logger: logger,
		pool:   NewPool(cli, cfg, logger),
	}, nil
}

// Init pulls the image and starts filling the pool.
func (e *Executor) Init(ctx context.Context) error {
	e.logger.Info("pulling sandbox image", slog.String("image", e.config.Image))

	reader, err := e.cli.ImagePull(ctx, e.config.Image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("docker: pull %s: %w", e.config.Image, err)
	}
	defer reader.Close()

	// The pull is only finished once the progress stream ends.
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("docker: pull %s: %w", e.config.Image, err)
	}

	e.pool.Start()
	return nil
}

// Close removes the pooled containers and closes the client.
func (e *Executor) Close() error {
	e.pool.Stop()
	return e.cli.Close()
}

// Execute compiles req.Code with gcc and runs it with req.Stdin.
func (e *Executor) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	start := time.Now()

	id, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("docker: acquire container: %w", err)
	}
	defer e.pool.Release(id)

	runCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	compile, err := e.exec(runCtx, id, e.compileCmd(), req.Code)
	if err != nil {
		return nil, err
	}
	if compile.timedOut {
		return timedOut(compile, start), nil
	}
	if compile.exitCode != 0 {
		return &executor.ExecutionResult{
			Stderr:        compile.stderr,
			CompileOutput: compile.stderr + compile.stdout,
			ExitCode:      compile.exitCode,
			Duration:      time.Since(start),
		}, nil
	}

	run, err := e.exec(runCtx, id, []string{binaryPath}, req.Stdin)
	if err != nil {
		return nil, err
	}
	if run.timedOut {
		return timedOut(run, start), nil
	}

	e.logger.Debug("run finished",
		slog.String("container", id[:min(12, len(id))]),
		slog.Int("exitCode", run.exitCode))

	return &executor.ExecutionResult{
		Stdout:   run.stdout,
		Stderr:   run.stderr,
		ExitCode: run.exitCode,
		Duration: time.Since(start),
	}, nil
}

// compileCmd writes stdin to the source path and compiles it in one exec.
func (e *Executor) compileCmd() []string {
	gcc := append([]string{"gcc"}, e.config.CompileFlags...)
	gcc = append(gcc, "-o", binaryPath, sourcePath, "-lm")
	return []string{"sh", "-c", "cat > " + sourcePath + " && " + strings.Join(gcc, " ")}
}

type execOutcome struct {
	stdout   string
	stderr   string
	exitCode int
	timedOut bool
}

func timedOut(o execOutcome, start time.Time) *executor.ExecutionResult {
	stderr := o.stderr
	if stderr != "" && !strings.HasSuffix(stderr, "\n") {
		stderr += "\n"
	}
	return &executor.ExecutionResult{
		Stdout:   o.stdout,
		Stderr:   stderr + timeoutMessage,
		ExitCode: TimeoutExitCode,
		Duration: time.Since(start),
	}
}

// exec runs cmd in the container, feeding it stdin and collecting both
// output streams. Hitting ctx's deadline is reported as timedOut, not an error.
func (e *Executor) exec(ctx context.Context, id string, cmd []string, stdin string) (execOutcome, error) {
	created, err := e.cli.ContainerExecCreate(ctx, id, container.ExecOptions{
		Cmd:          cmd,
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		WorkingDir:   "/tmp",
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return execOutcome{timedOut: true}, nil
		}
		return execOutcome{}, fmt.Errorf("docker: exec create: %w", err)
	}

	attach, err := e.cli.ContainerExecAttach(ctx, created.ID, container.ExecStartOptions{})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return execOutcome{timedOut: true}, nil
		}
		return execOutcome{}, fmt.Errorf("docker: exec attach: %w", err)
	}
	defer attach.Close()

	go func() {
		_, _ = io.Copy(attach.Conn, strings.NewReader(stdin))
		_ = attach.CloseWrite()
	}()

	var stdout, stderr bytes.Buffer
	copied := make(chan struct{})
	go func() {
		_, _ = stdcopy.StdCopy(&stdout, &stderr, attach.Reader)
		close(copied)
	}()

	select {
	case <-copied:
	case <-ctx.Done():
		// Closing the connection unblocks StdCopy so the buffers are safe to read.
		attach.Close()
		<-copied
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return execOutcome{stdout: stdout.String(), stderr: stderr.String(), timedOut: true}, nil
		}
		return execOutcome{}, ctx.Err()
	}

	inspect, err := e.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return execOutcome{}, fmt.Errorf("docker: exec inspect: %w", err)
	}
	return execOutcome{
		stdout:   stdout.String(),
		stderr:   stderr.String(),
		exitCode: inspect.ExitCode,
	}, nil
}
