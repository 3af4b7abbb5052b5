// Package http provides the HTTP handlers and router of the trade journal
// API server.
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/atinyakov/tradejournal/internal/middleware"
	"github.com/atinyakov/tradejournal/internal/models"
)

// AuthService defines the authentication operations
// required by the HTTP handlers.
type AuthService interface {
	Register(ctx context.Context, creds models.RegisterCredentials) (*models.AuthResponse, error)
	Login(ctx context.Context, creds models.LoginCredentials) (*models.AuthResponse, error)
	// Refresh exchanges a refresh token for a new access token.
	Refresh(ctx context.Context, refreshToken string) (*models.RefreshResponse, error)
	// Logout revokes the session of an access token.
	Logout(ctx context.Context, accessToken string) error
}

// AuthHandler handles HTTP requests for registration, login and tokens.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
}

// Register handles POST /auth/register. It answers 201 with the new user and
// a token pair, or 409 when the email is taken.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterCredentials
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	resp, err := h.AuthService.Register(r.Context(), req)
	if errors.Is(err, models.ErrConflict) {
		writeJSON(w, http.StatusConflict, models.ErrorResponse{
			Error:   "email is already registered",
			Details: map[string]any{"email": "already registered"},
		})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginCredentials
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	resp, err := h.AuthService.Login(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Refresh handles POST /auth/refresh. The refresh token is the bearer token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	resp, err := h.AuthService.Refresh(r.Context(), middleware.BearerToken(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Me handles GET /auth/me for an authenticated request.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "authentication required"})
		return
	}
	writeJSON(w, http.StatusOK, models.UserResponse{User: user})
}

// Logout handles POST /auth/logout and revokes the presented access token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.AuthService.Logout(r.Context(), middleware.BearerToken(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Logged out successfully"})
}
