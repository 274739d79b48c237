package docker_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/coderunner/internal/executor"
	"github.com/sakif/coderunner/internal/executor/docker"
)

// These tests need a Docker daemon and pull gcc; they are skipped in CI.
func newExecutor(t *testing.T, cfg docker.Config) *docker.Executor {
	t.Helper()
	if os.Getenv("CI") != "" {
		t.Skip("docker sandbox tests do not run in CI")
	}
	if testing.Short() {
		t.Skip("docker sandbox tests skipped in -short mode")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	exec, err := docker.New(cfg, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := exec.Init(ctx); err != nil {
		exec.Close()
		t.Skipf("docker not available: %v", err)
	}
	t.Cleanup(func() { exec.Close() })
	return exec
}

func TestDockerExecutor(t *testing.T) {
	cfg := docker.DefaultConfig()
	cfg.PoolSize = 1
	exec := newExecutor(t, cfg)

	t.Run("sum from stdin", func(t *testing.T) {
		res, err := exec.Execute(context.Background(), executor.ExecutionRequest{
			Code:  "#include <stdio.h>\nint main(){int a,b;scanf(\"%d %d\",&a,&b);printf(\"%d\",a+b);return 0;}",
			Stdin: "2 3",
		})
		require.NoError(t, err)
		assert.Equal(t, 0, res.ExitCode)
		assert.Equal(t, "5", res.Stdout)
		assert.Empty(t, res.CompileOutput)
		assert.Greater(t, res.Duration, time.Duration(0))
	})

	t.Run("compile error", func(t *testing.T) {
		res, err := exec.Execute(context.Background(), executor.ExecutionRequest{
			Code: "int main() { return 0 }",
		})
		require.NoError(t, err)
		assert.NotEqual(t, 0, res.ExitCode)
		assert.Contains(t, res.CompileOutput, "error")
		assert.Empty(t, res.Stdout)
	})

	t.Run("non-zero exit", func(t *testing.T) {
		res, err := exec.Execute(context.Background(), executor.ExecutionRequest{
			Code: "int main() { return 3; }",
		})
		require.NoError(t, err)
		assert.Equal(t, 3, res.ExitCode)
		assert.Empty(t, res.CompileOutput)
	})
}

func TestDockerExecutor_Timeout(t *testing.T) {
	cfg := docker.DefaultConfig()
	cfg.PoolSize = 1
	cfg.Timeout = 3 * time.Second
	exec := newExecutor(t, cfg)

	res, err := exec.Execute(context.Background(), executor.ExecutionRequest{
		Code: "int main() { for (;;) {} }",
	})
	require.NoError(t, err)
	assert.Equal(t, docker.TimeoutExitCode, res.ExitCode)
	assert.Contains(t, res.Stderr, "timed out")
}
