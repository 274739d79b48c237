package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/coderunner/internal/auth"
	"github.com/sakif/coderunner/internal/service"
)

// AuthHandler logs the admin in and out. The session lives in an HttpOnly
// cookie; the token is also returned in the body for API clients.
type AuthHandler struct {
	auth         *service.AuthService
	secureCookie bool
	logger       *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, secureCookie: secureCookie, logger: logger}
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// HandleLogin serves POST /auth/login with {"password": "..."}.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	session, err := h.auth.Login(r.Context(), req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{Token: session.Token, ExpiresAt: session.ExpiresAt})
}

// HandleLogout clears the cookie. Tokens are stateless, so a copied token
// stays valid until it expires.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

type sessionResponse struct {
	Admin     bool       `json:"admin"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// HandleSession serves GET /auth/session: whether the caller holds an admin
// session. It sits behind auth.OptionalAuth and never fails.
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	c, ok := auth.ClaimsFromContext(r.Context())
	if !ok || c.Role != auth.RoleAdmin {
		writeJSON(w, http.StatusOK, sessionResponse{})
		return
	}
	expires := c.ExpiresAt
	writeJSON(w, http.StatusOK, sessionResponse{Admin: true, ExpiresAt: &expires})
}
