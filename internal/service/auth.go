package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/coderunner/internal/apperror"
	"github.com/sakif/coderunner/internal/auth"
)

// ErrAdminDisabled is returned by Login when no admin password is configured.
var ErrAdminDisabled = apperror.Forbidden("admin login is not configured")

// AuthService logs in the single admin.
type AuthService struct {
	passwordHash string
	tokens       *auth.TokenService
	passwords    *auth.PasswordService
	logger       *slog.Logger
}

// NewAuthService returns nil when tokens is nil; the server then mounts no
// admin routes.
func NewAuthService(
	passwordHash string,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	if tokens == nil {
		return nil
	}
	return &AuthService{
		passwordHash: passwordHash,
		tokens:       tokens,
		passwords:    passwords,
		logger:       logger,
	}
}

// Session is a freshly issued admin token.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// Login checks password against the configured hash and issues a token.
func (s *AuthService) Login(_ context.Context, password string) (*Session, error) {
	if s.passwordHash == "" {
		return nil, ErrAdminDisabled
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	if err := s.passwords.Verify(s.passwordHash, password); err != nil {
		if errors.Is(err, auth.ErrWrongPassword) {
			s.logger.Warn("admin login rejected")
			return nil, apperror.Unauthorized("wrong password")
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	token, err := s.tokens.Generate(auth.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	s.logger.Info("admin logged in")
	return &Session{Token: token, ExpiresAt: time.Now().Add(s.tokens.Lifetime())}, nil
}
