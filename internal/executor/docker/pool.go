package docker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

const (
	createTimeout = 30 * time.Second
	removeTimeout = 5 * time.Second
	refillBackoff = time.Second
	refillPoll    = 100 * time.Millisecond
)

// Pool keeps PoolSize idle sandbox containers running so a run never pays for
// container start-up. A container is used for exactly one run and then removed;
// the manager goroutine replaces it.
type Pool struct {
	cli    *client.Client
	config Config
	logger *slog.Logger

	idle chan string
	done chan struct{}
	wg   sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewPool returns a stopped pool.
func NewPool(cli *client.Client, cfg Config, logger *slog.Logger) *Pool {
	return &Pool{
		cli:    cli,
		config: cfg,
		logger: logger,
		idle:   make(chan string, cfg.PoolSize),
		done:   make(chan struct{}),
	}
}

// Start launches the refill goroutine.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		p.logger.Info("starting sandbox pool",
			slog.String("image", p.config.Image),
			slog.Int("size", p.config.PoolSize))
		p.wg.Add(1)
		go p.refill()
	})
}

// Stop ends the refill goroutine and removes every idle container.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.wg.Wait()

		for {
			select {
			case id := <-p.idle:
				p.remove(id)
			default:
				p.logger.Info("sandbox pool stopped")
				return
			}
		}
	})
}

// Acquire takes an idle container, waiting for the refill goroutine if the
// pool is empty. The caller owns the container and must Release it.
func (p *Pool) Acquire(ctx context.Context) (string, error) {
	select {
	case id := <-p.idle:
		return id, nil
	case <-p.done:
		return "", fmt.Errorf("docker: pool stopped")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Release destroys a used container. Containers are never reused.
func (p *Pool) Release(id string) {
	p.remove(id)
}

func (p *Pool) refill() {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return
		default:
		}

		if len(p.idle) == cap(p.idle) {
			select {
			case <-p.done:
				return
			case <-time.After(refillPoll):
			}
			continue
		}

		id, err := p.create()
		if err != nil {
			p.logger.Error("creating sandbox container", slog.String("error", err.Error()))
			select {
			case <-p.done:
				return
			case <-time.After(refillBackoff):
			}
			continue
		}

		select {
		case p.idle <- id:
		case <-p.done:
			p.remove(id)
			return
		}
	}
}

// create starts a locked-down container that idles until a run execs into it.
// /tmp is the only writable path; it holds the source and the binary.
func (p *Pool) create() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), createTimeout)
	defer cancel()

	hostConfig := &container.HostConfig{
		NetworkMode:    "none",
		ReadonlyRootfs: true,
		Tmpfs: map[string]string{
			"/tmp": "rw,exec,nosuid,size=64m",
		},
		Resources: container.Resources{
			Memory:   p.config.MemoryLimit,
			NanoCPUs: int64(p.config.CPULimit * 1e9),
		},
	}

	resp, err := p.cli.ContainerCreate(ctx, &container.Config{
		Image:      p.config.Image,
		Cmd:        []string{"sleep", "infinity"},
		User:       "nobody",
		WorkingDir: "/tmp",
	}, hostConfig, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("docker: create container: %w", err)
	}

	if err := p.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		p.remove(resp.ID)
		return "", fmt.Errorf("docker: start container: %w", err)
	}
	return resp.ID, nil
}

func (p *Pool) remove(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), removeTimeout)
	defer cancel()

	if err := p.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		p.logger.Warn("removing sandbox container", slog.String("id", id), slog.String("error", err.Error()))
	}
}
