// Package judge0 runs C programs on a remote Judge0 instance.
//
// Judge0 is asynchronous: a submission returns a token immediately and the
// result has to be polled for. Every payload field that carries program text
// is base64 encoded in both directions.
package judge0

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/coderunner/internal/executor"
	"github.com/sakif/coderunner/internal/executor/heuristic"
)

const (
	DefaultBaseURL      = "https://judge0-ce.p.rapidapi.com"
	DefaultLanguageID   = 50 // C (GCC)
	DefaultPollInterval = 2 * time.Second
	DefaultMaxAttempts  = 10

	// SimulationWarning prefixes output when no API key is configured.
	SimulationWarning = "Warning: Judge0 API key not set. Running in simulation mode...\n\n"
)

// Judge0 status ids. Anything at or above statusAccepted is final.
const (
	statusInQueue    = 1
	statusProcessing = 2
	statusAccepted   = 3
)

// Config holds the Judge0 endpoint and credentials.
type Config struct {
	BaseURL      string
	APIKey       string
	Host         string // X-RapidAPI-Host; derived from BaseURL when empty
	LanguageID   int
	PollInterval time.Duration
	MaxAttempts  int
}

// Client implements executor.Executor against the Judge0 HTTP API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client. A zero Config talks to the public RapidAPI host.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Host == "" {
		cfg.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.BaseURL, "https://"), "http://")
	}
	if cfg.LanguageID == 0 {
		cfg.LanguageID = DefaultLanguageID
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.With(slog.String("backend", "judge0")),
	}
}

type submission struct {
	SourceCode string `json:"source_code"`
	LanguageID int    `json:"language_id"`
	Stdin      string `json:"stdin"`
}

type status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Result is a Judge0 submission as returned by GET /submissions/{token}.
// Text fields are still base64 encoded.
type Result struct {
	Stdout        string  `json:"stdout"`
	Stderr        string  `json:"stderr"`
	CompileOutput string  `json:"compile_output"`
	ExitCode      *int    `json:"exit_code"`
	Time          string  `json:"time"`
	Status        status  `json:"status"`
	Message       *string `json:"message"`
}

// Execute submits the program and waits for Judge0 to finish it.
func (c *Client) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	start := time.Now()

	if c.cfg.APIKey == "" {
		return &executor.ExecutionResult{
			Stdout:   SimulationWarning + heuristic.SimulatePrintf(req.Code),
			Duration: time.Since(start),
		}, nil
	}

	token, err := c.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("submitted", slog.String("token", token))

	res, err := c.Poll(ctx, token)
	if err != nil {
		return nil, err
	}

	out, err := decode(res)
	if err != nil {
		return nil, err
	}
	out.Duration = time.Since(start)
	return out, nil
}

// Submit creates a submission and returns its token.
func (c *Client) Submit(ctx context.Context, req executor.ExecutionRequest) (string, error) {
	body, err := json.Marshal(submission{
		SourceCode: base64.StdEncoding.EncodeToString([]byte(req.Code)),
		LanguageID: c.cfg.LanguageID,
		Stdin:      base64.StdEncoding.EncodeToString([]byte(req.Stdin)),
	})
	if err != nil {
		return "", fmt.Errorf("judge0: marshal submission: %w", err)
	}

	url := c.cfg.BaseURL + "/submissions?base64_encoded=true&wait=false"
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, url, bytes.NewReader(body), &out); err != nil {
		return "", fmt.Errorf("judge0: submit: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("judge0: submit: empty token")
	}
	return out.Token, nil
}

// Poll fetches the submission until Judge0 reports a final status or the
// attempt budget runs out.
func (c *Client) Poll(ctx context.Context, token string) (*Result, error) {
	url := c.cfg.BaseURL + "/submissions/" + token + "?base64_encoded=true"
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		var res Result
		if err := c.do(ctx, http.MethodGet, url, nil, &res); err != nil {
			return nil, fmt.Errorf("judge0: poll %s: %w", token, err)
		}
		if res.Status.ID >= statusAccepted {
			return &res, nil
		}
		c.logger.Debug("still running",
			slog.String("token", token),
			slog.Int("attempt", attempt),
			slog.String("status", res.Status.Description))
	}
	return nil, fmt.Errorf("judge0: execution timed out after %d polls", c.cfg.MaxAttempts)
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-RapidAPI-Key", c.cfg.APIKey)
	req.Header.Set("X-RapidAPI-Host", c.cfg.Host)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decode turns a finished Judge0 result into an ExecutionResult.
func decode(res *Result) (*executor.ExecutionResult, error) {
	stdout, err := unbase64(res.Stdout)
	if err != nil {
		return nil, fmt.Errorf("judge0: decode stdout: %w", err)
	}
	stderr, err := unbase64(res.Stderr)
	if err != nil {
		return nil, fmt.Errorf("judge0: decode stderr: %w", err)
	}
	compile, err := unbase64(res.CompileOutput)
	if err != nil {
		return nil, fmt.Errorf("judge0: decode compile_output: %w", err)
	}

	out := &executor.ExecutionResult{
		Stdout:        stdout,
		Stderr:        stderr,
		CompileOutput: compile,
	}
	if res.ExitCode != nil {
		out.ExitCode = *res.ExitCode
	}

	if res.Status.ID != statusAccepted {
		if res.ExitCode == nil || *res.ExitCode == 0 {
			out.ExitCode = 1
		}
		if out.Stderr != "" && !strings.HasSuffix(out.Stderr, "\n") {
			out.Stderr += "\n"
		}
		out.Stderr += "Status: " + res.Status.Description
	}
	return out, nil
}

// unbase64 tolerates the line breaks Judge0 inserts every 60 characters.
func unbase64(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	b, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(s, "\n", ""))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
