// Package config reads the server and CLI configuration from the environment.
//
// A .env file in the working directory is loaded first (if present) so local
// development does not need exported variables. Real environment variables
// always win over the file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend names accepted by RUNNER_BACKEND.
const (
	BackendHeuristic = "heuristic"
	BackendJudge0    = "judge0"
	BackendDocker    = "docker"
)

// Cache modes accepted by CACHE_MODE.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config is everything the binaries need, grouped by concern.
type Config struct {
	Port      int
	DBPath    string
	LogLevel  slog.Level
	LogFormat string // "text" or "json"

	Auth   Auth
	Runner Runner
	Cache  Cache
	Judge  Judge
}

// Auth configures the admin session.
type Auth struct {
	JWTSecret         string
	AdminPasswordHash string
	// CookieSecure marks the session cookie Secure; turn it on behind HTTPS.
	CookieSecure bool
}

// Enabled reports whether admin login can work at all.
func (a Auth) Enabled() bool {
	return a.JWTSecret != "" && a.AdminPasswordHash != ""
}

// Runner selects and tunes the execution backend.
type Runner struct {
	Backend     string
	Timeout     time.Duration
	InitTimeout time.Duration
	Concurrency int

	Judge0URL        string
	Judge0APIKey     string
	Judge0Host       string
	Judge0LanguageID int

	// Judge0PollInterval × Judge0MaxAttempts is how long one remote run may
	// take to reach a final status.
	Judge0PollInterval time.Duration
	Judge0MaxAttempts  int

	DockerImage    string
	DockerPoolSize int
}

// judge0TimeoutMargin covers the submit request and the final fetch on top
// of the poll budget.
const judge0TimeoutMargin = 5 * time.Second

// Judge0PollBudget is the longest a Judge0 run can be polled for.
func (r Runner) Judge0PollBudget() time.Duration {
	return r.Judge0PollInterval * time.Duration(r.Judge0MaxAttempts)
}

// Cache configures the run-result cache.
type Cache struct {
	Mode     string
	RedisURL string
	TTL      time.Duration
}

// Judge configures practice-problem judging.
type Judge struct {
	// Parallelism is how many test cases of one submission run at once.
	Parallelism int
}

// Load reads .env (if any) and the environment. Unset variables get defaults;
// malformed ones are an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromEnv()
}

// FromEnv is Load without the .env file.
func FromEnv() (*Config, error) {
	p := &parser{}

	cfg := &Config{
		Port:      p.int("PORT", 8080),
		DBPath:    p.string("DB_PATH", "data/coderunner.db"),
		LogLevel:  p.level("LOG_LEVEL", slog.LevelInfo),
		LogFormat: p.oneOf("LOG_FORMAT", "text", "text", "json"),
		Auth: Auth{
			JWTSecret:         os.Getenv("JWT_SECRET"),
			AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
			CookieSecure:      p.bool("COOKIE_SECURE", false),
		},
		Runner: Runner{
			Backend:          p.oneOf("RUNNER_BACKEND", BackendHeuristic, BackendHeuristic, BackendJudge0, BackendDocker),
			Timeout:          p.duration("RUNNER_TIMEOUT", 10*time.Second),
			InitTimeout:      p.duration("RUNNER_INIT_TIMEOUT", 2*time.Minute),
			Concurrency:      p.int("RUNNER_CONCURRENCY", 1),
			Judge0URL:        p.string("JUDGE0_URL", "https://judge0-ce.p.rapidapi.com"),
			Judge0APIKey:     os.Getenv("JUDGE0_API_KEY"),
			Judge0Host:       os.Getenv("JUDGE0_HOST"),
			Judge0LanguageID: p.int("JUDGE0_LANGUAGE_ID", 50),

			Judge0PollInterval: p.duration("JUDGE0_POLL_INTERVAL", 2*time.Second),
			Judge0MaxAttempts:  p.int("JUDGE0_MAX_ATTEMPTS", 10),

			DockerImage:    p.string("DOCKER_IMAGE", "gcc:14"),
			DockerPoolSize: p.int("DOCKER_POOL_SIZE", 2),
		},
		Cache: Cache{
			Mode:     p.oneOf("CACHE_MODE", CacheMemory, CacheNone, CacheMemory, CacheRedis),
			RedisURL: os.Getenv("REDIS_URL"),
			TTL:      p.duration("CACHE_TTL", 10*time.Minute),
		},
		Judge: Judge{
			Parallelism: p.int("JUDGE_PARALLELISM", 4),
		},
	}

	if p.err != nil {
		return nil, p.err
	}
	// A remote run is only as fast as its polling allows, so judge0 gets a
	// default timeout that covers the whole poll budget.
	if cfg.Runner.Backend == BackendJudge0 && os.Getenv("RUNNER_TIMEOUT") == "" {
		cfg.Runner.Timeout = cfg.Runner.Judge0PollBudget() + judge0TimeoutMargin
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	if c.Runner.Concurrency < 1 {
		return fmt.Errorf("config: RUNNER_CONCURRENCY must be at least 1")
	}
	if c.Runner.Judge0PollInterval <= 0 || c.Runner.Judge0MaxAttempts < 1 {
		return fmt.Errorf("config: JUDGE0_POLL_INTERVAL and JUDGE0_MAX_ATTEMPTS must be positive")
	}
	if c.Judge.Parallelism < 1 {
		return fmt.Errorf("config: JUDGE_PARALLELISM must be at least 1")
	}
	if c.Cache.Mode == CacheRedis && c.Cache.RedisURL == "" {
		return fmt.Errorf("config: CACHE_MODE=redis needs REDIS_URL")
	}
	return nil
}

// parser keeps the first error so Load can read every variable in one pass.
type parser struct {
	err error
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("config: invalid %s %q: %w", key, value, err)
	}
}

func (p *parser) string(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}

func (p *parser) level(key string, def slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		p.fail(key, v, err)
		return def
	}
	return l
}

func (p *parser) oneOf(key, def string, allowed ...string) string {
	v := strings.ToLower(os.Getenv(key))
	if v == "" {
		return def
	}
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	p.fail(key, v, fmt.Errorf("want one of %s", strings.Join(allowed, ", ")))
	return def
}
