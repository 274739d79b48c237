package docker

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDaemon answers exec create at once and holds exec start until after
// the caller's deadline, then refuses the upgrade.
func fakeDaemon(t *testing.T, startDelay time.Duration) *Executor {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/exec") && r.Method == http.MethodPost:
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"Id":"exec-1"}`)
		case strings.HasSuffix(r.URL.Path, "/exec/exec-1/start"):
			time.Sleep(startDelay)
			http.Error(w, `{"message":"daemon busy"}`, http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	cli, err := client.NewClientWithOpts(
		client.WithHost("tcp://"+srv.Listener.Addr().String()),
		client.WithVersion("1.47"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { cli.Close() })

	return &Executor{
		cli:    cli,
		config: DefaultConfig(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestExec_DeadlineDuringAttachIsATimeout(t *testing.T) {
	e := fakeDaemon(t, 150*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	out, err := e.exec(ctx, "c1", []string{"true"}, "")
	require.NoError(t, err)
	assert.True(t, out.timedOut)
}

func TestExec_AttachFailureWithoutDeadline(t *testing.T) {
	e := fakeDaemon(t, 0)

	_, err := e.exec(context.Background(), "c1", []string{"true"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docker: exec attach")
}
