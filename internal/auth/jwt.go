// Package auth issues and checks the admin session used to edit the problem
// catalog.
//
// There are no user accounts. The site owner logs in with a password whose
// bcrypt hash lives in ADMIN_PASSWORD_HASH and receives a signed JWT, sent
// back either as the "token" cookie or as an Authorization: Bearer header.
//
// Token layout (HS256):
//
//	header.payload.signature
//	payload = {"sub":"admin","role":"admin","iss":"coderunner","iat":…,"exp":…}
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "coderunner"

	// RoleAdmin is the only role that exists today.
	RoleAdmin = "admin"

	// DefaultSessionLifetime is how long a login lasts.
	DefaultSessionLifetime = 12 * time.Hour

	minSecretLength = 16
)

var ErrInvalidToken = errors.New("auth: invalid token")

// TokenService signs and validates session tokens with one HMAC secret.
type TokenService struct {
	secret   []byte
	lifetime time.Duration
}

// NewTokenService rejects secrets shorter than 16 bytes.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", minSecretLength)
	}
	return &TokenService{secret: []byte(secret), lifetime: DefaultSessionLifetime}, nil
}

// Lifetime is the validity of tokens made by Generate.
func (s *TokenService) Lifetime() time.Duration {
	return s.lifetime
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Claims is what a valid token says about its bearer.
type Claims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

// Generate issues an admin token valid for Lifetime.
func (s *TokenService) Generate(subject string) (string, error) {
	return s.GenerateWithDuration(subject, s.lifetime)
}

// GenerateWithDuration issues an admin token valid for d. A negative d gives
// an already-expired token, which tests use.
func (s *TokenService) GenerateWithDuration(subject string, d time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate checks signature, algorithm, issuer and expiry. Every failure
// wraps ErrInvalidToken.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(*jwt.Token) (any, error) { return s.secret, nil },
		// Pinning the method stops alg=none and RS/HS confusion.
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: expired", ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: bad claims", ErrInvalidToken)
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}

	return &Claims{
		Subject:   c.Subject,
		Role:      c.Role,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
