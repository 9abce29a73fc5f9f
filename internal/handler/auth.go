// Package handler contains the HTTP handlers for the InboxPilot API.
//
// This file implements account routes:
//   - POST /api/auth/register
//   - POST /api/auth/login
//   - POST /api/auth/logout
//   - GET  /api/me
package handler

import (
	"log/slog"
	"net/http"

	"github.com/inboxpilot/inboxpilot/internal/domain"
	"github.com/inboxpilot/inboxpilot/internal/middleware"
	"github.com/inboxpilot/inboxpilot/internal/service"
)

// AuthHandler handles registration, login, and the current-user endpoint.
type AuthHandler struct {
	userService service.UserService
	quota       service.QuotaService
	logger      *slog.Logger
	isSecure    bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(userService service.UserService, quota service.QuotaService, logger *slog.Logger, isSecure bool) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		quota:       quota,
		logger:      logger,
		isSecure:    isSecure,
	}
}

// userPayload is the wire shape of a user. The password hash never leaves
// the server.
type userPayload struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	Name             string `json:"name,omitempty"`
	Plan             string `json:"plan"`
	MailboxConnected bool   `json:"mailboxConnected"`
}

func toUserPayload(u *domain.User) userPayload {
	return userPayload{
		ID:               u.ID.String(),
		Email:            u.Email,
		Name:             u.Name,
		Plan:             string(u.Plan()),
		MailboxConnected: u.MailboxConnected(),
	}
}

// HandleRegister creates a new account and logs it in.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("AuthHandler.HandleRegister", "Invalid request body"))
		return
	}

	user, err := h.userService.Register(r.Context(), domain.RegisterParams{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	middleware.SetSessionCookie(w, result.Token, h.isSecure)
	respondJSON(w, http.StatusCreated, toUserPayload(user))
}

// HandleLogin authenticates and sets the session cookie.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("AuthHandler.HandleLogin", "Invalid request body"))
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	middleware.SetSessionCookie(w, result.Token, h.isSecure)
	respondJSON(w, http.StatusOK, toUserPayload(result.User))
}

// HandleLogout deletes the session and clears the cookie.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		if err := h.userService.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("Failed to delete session on logout", "error", err)
		}
	}
	middleware.ClearSessionCookie(w, h.isSecure)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe returns the authenticated user with their current quota position.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	quota, err := h.quota.Status(r.Context(), user)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, struct {
		User  userPayload          `json:"user"`
		Quota *service.QuotaStatus `json:"quota"`
	}{toUserPayload(user), quota})
}
