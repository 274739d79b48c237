// Package server assembles the HTTP application: it opens the database, seeds
// the problem catalog, builds the services on top of the code runner and
// mounts the routes.
//
// SHUTDOWN ORDER:
//
//	HTTP server → background judging → code runner → database
//
// Each stage may still need the next one, so they stop strictly in that order.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/coderunner/internal/auth"
	"github.com/sakif/coderunner/internal/config"
	"github.com/sakif/coderunner/internal/handler"
	"github.com/sakif/coderunner/internal/judge"
	"github.com/sakif/coderunner/internal/middleware"
	"github.com/sakif/coderunner/internal/problems"
	sqliteRepo "github.com/sakif/coderunner/internal/repository/sqlite"
	"github.com/sakif/coderunner/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Runner is the code runner the server drives and eventually shuts down.
// *bridge.Bridge satisfies it.
type Runner interface {
	handler.Runner
	Shutdown(ctx context.Context) error
}

type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger

	db          *sqliteRepo.DB
	runner      Runner
	submissions *service.SubmissionService
}

// New opens the database and builds the router. The server owns db and
// runner from here on and releases both in Shutdown.
func New(ctx context.Context, cfg *config.Config, runner Runner, logger *slog.Logger) (*Server, error) {
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		runner: runner,
	}

	if err := s.setupRoutes(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes(ctx context.Context) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	problemService := service.NewProblemService(s.db, s.logger)
	catalog, err := problems.Load()
	if err != nil {
		return fmt.Errorf("loading problem catalog: %w", err)
	}
	if _, err := problemService.Seed(ctx, catalog); err != nil {
		return err
	}

	j := judge.New(s.runner, s.config.Judge.Parallelism, s.logger)
	s.submissions = service.NewSubmissionService(s.db, s.db, j, s.logger)
	snippetService := service.NewSnippetService(s.db, s.runner, s.logger)

	executeHandler := handler.NewExecuteHandler(s.runner, s.logger)
	snippetHandler := handler.NewSnippetHandler(snippetService, s.logger)
	problemHandler := handler.NewProblemHandler(problemService, s.submissions, s.logger)

	pageHandler, err := handler.NewRunnerPageHandler(problemService, s.logger)
	if err != nil {
		return fmt.Errorf("creating runner page handler: %w", err)
	}

	requireAdmin, mountAuth, err := s.adminAuth()
	if err != nil {
		return err
	}

	s.router.Get("/", pageHandler.HandlePage)
	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Route("/auth", mountAuth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/runner/status", executeHandler.HandleStatus)
		r.Post("/run", executeHandler.HandleRun)

		r.Route("/snippets", func(r chi.Router) {
			r.Get("/", snippetHandler.HandleList)
			r.Post("/", snippetHandler.HandleCreate)
			r.Get("/{id}", snippetHandler.HandleGet)
			r.Put("/{id}", snippetHandler.HandleUpdate)
			r.Delete("/{id}", snippetHandler.HandleDelete)
			r.Post("/{id}/run", snippetHandler.HandleRun)
		})

		r.Route("/problems", func(r chi.Router) {
			r.Get("/", problemHandler.HandleList)
			r.Get("/{id}", problemHandler.HandleGet)
			r.Get("/{id}/submissions", problemHandler.HandleListSubmissions)
			r.Post("/{id}/submissions", problemHandler.HandleSubmit)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Put("/{id}", problemHandler.HandlePut)
				r.Delete("/{id}", problemHandler.HandleDelete)
			})
		})

		r.Get("/submissions/{id}", problemHandler.HandleGetSubmission)
	})

	return nil
}

// adminAuth returns the middleware guarding catalog edits and the function
// that mounts the /auth routes. Without JWT_SECRET every admin route answers
// 403 and /auth is empty.
func (s *Server) adminAuth() (func(http.Handler) http.Handler, func(chi.Router), error) {
	cfg := s.config.Auth
	if cfg.JWTSecret == "" {
		s.logger.Warn("JWT_SECRET not set, problem editing is disabled")
		return denyAll, func(chi.Router) {}, nil
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return nil, nil, err
	}
	if cfg.AdminPasswordHash == "" {
		s.logger.Warn("ADMIN_PASSWORD_HASH not set, admin login will be refused")
	}

	authService := service.NewAuthService(cfg.AdminPasswordHash, tokens, auth.NewPasswordService(), s.logger)
	h := handler.NewAuthHandler(authService, cfg.CookieSecure, s.logger)

	mount := func(r chi.Router) {
		r.Post("/login", h.HandleLogin)
		r.Post("/logout", h.HandleLogout)
		r.With(auth.OptionalAuth(tokens)).Get("/session", h.HandleSession)
	}
	return auth.RequireAdmin(tokens), mount, nil
}

func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"forbidden","message":"admin login is not configured"}`))
	})
}

// Start serves until SIGINT or SIGTERM, then shuts down.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves until ctx is done, then shuts everything down.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Longer than the run timeout so a slow run still gets its answer out.
		WriteTimeout: s.config.Runner.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.String("backend", s.config.Runner.Backend),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		serveErr = errors.Join(serveErr, fmt.Errorf("graceful shutdown failed: %w", err))
	}
	return errors.Join(serveErr, s.Shutdown(shutdownCtx))
}

// Shutdown stops judging, the code runner and the database, in that order.
// Run calls it; tests that never call Run call it directly.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.submissions != nil {
		if err := s.submissions.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("closing submissions: %w", err))
		}
	}
	if err := s.runner.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stopping code runner: %w", err))
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}

	if len(errs) == 0 {
		s.logger.Info("server stopped gracefully")
	}
	return errors.Join(errs...)
}
