package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"time"

	"go-wiki-engine/internal/auth"
	"go-wiki-engine/internal/logger"
	"go-wiki-engine/internal/middleware"
	"go-wiki-engine/internal/session"

	"golang.org/x/oauth2"
)

// Identifier is the part of auth.Authenticator the login flow uses.
type Identifier interface {
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	Identify(ctx context.Context, code string) (*auth.Claims, error)
}

var _ Identifier = (*auth.Authenticator)(nil)

var errLoginDisabled = errors.New("no identity provider configured")

const stateCookie = "oidc_state"

// AuthHandler holds the dependencies for the authentication handlers.
type AuthHandler struct {
	auth    Identifier
	session session.Manager
	log     logger.Logger
}

// NewAuthHandler creates a new AuthHandler. A nil identifier disables login.
func NewAuthHandler(a Identifier, sm session.Manager, log logger.Logger) *AuthHandler {
	return &AuthHandler{auth: a, session: sm, log: log}
}

// handleLogin redirects the user to the OIDC provider to log in.
// It uses a random 'state' string for CSRF protection.
func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if h.auth == nil {
		return &middleware.AppError{Error: errLoginDisabled, Message: "Login is not available", Code: http.StatusServiceUnavailable}
	}
	state, err := randString(16)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Internal Server Error", Code: http.StatusInternalServerError}
	}
	// Store the state in a short-lived cookie to verify on callback.
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(10 * time.Minute / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.auth.AuthCodeURL(state), http.StatusFound)
	return nil
}

// handleCallback is the redirect URL for the OIDC provider. The verified
// subject and display name go into a fresh session.
func (h *AuthHandler) handleCallback(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if h.auth == nil {
		return &middleware.AppError{Error: errLoginDisabled, Message: "Login is not available", Code: http.StatusServiceUnavailable}
	}
	cookie, err := r.Cookie(stateCookie)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "State cookie not found", Code: http.StatusBadRequest}
	}
	if r.URL.Query().Get("state") != cookie.Value {
		return &middleware.AppError{Error: errors.New("state mismatch"), Message: "State did not match", Code: http.StatusBadRequest}
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	claims, err := h.auth.Identify(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Login failed", Code: http.StatusUnauthorized}
	}

	if err := h.session.RenewToken(r.Context()); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to start session", Code: http.StatusInternalServerError}
	}
	h.session.Put(r.Context(), session.SubjectKey, claims.Subject)
	h.session.Put(r.Context(), session.NameKey, claims.DisplayName())
	h.log.With(map[string]interface{}{"subject": claims.Subject}).Info("user logged in")

	http.Redirect(w, r, "/", http.StatusFound)
	return nil
}

// handleLogout ends the session.
func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := h.session.Destroy(r.Context()); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to log out", Code: http.StatusInternalServerError}
	}
	http.Redirect(w, r, "/", http.StatusFound)
	return nil
}

// randString is a helper function to generate a random string for the 'state' parameter.
func randString(nByte int) (string, error) {
	b := make([]byte, nByte)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
