package handler

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/inboxpilot/inboxpilot/internal/domain"
	"github.com/inboxpilot/inboxpilot/internal/middleware"
	"github.com/inboxpilot/inboxpilot/internal/service"
)

const (
	oauthStateCookie = "inboxpilot_oauth_state"
	oauthStateTTL    = 10 * time.Minute
)

// MailboxConnector is the OAuth half of the Gmail client.
type MailboxConnector interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
}

// MailboxHandler drives the Gmail connect flow: hand the user to Google's
// consent screen, then store the refresh token the callback yields.
type MailboxHandler struct {
	connector   MailboxConnector
	userService service.UserService
	logger      *slog.Logger
	isSecure    bool
}

// NewMailboxHandler creates a new MailboxHandler.
func NewMailboxHandler(connector MailboxConnector, userService service.UserService, logger *slog.Logger, isSecure bool) *MailboxHandler {
	return &MailboxHandler{
		connector:   connector,
		userService: userService,
		logger:      logger,
		isSecure:    isSecure,
	}
}

// HandleConnect returns the Google consent URL and pins a state cookie for
// the callback to verify.
func (h *MailboxHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	const op = "MailboxHandler.HandleConnect"

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to generate state"))
		return
	}
	state := hex.EncodeToString(b)

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/mailbox",
		MaxAge:   int(oauthStateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.isSecure,
		SameSite: http.SameSiteLaxMode,
	})

	respondJSON(w, http.StatusOK, struct {
		URL string `json:"url"`
	}{h.connector.AuthURL(state)})
}

// HandleCallback verifies the OAuth state, exchanges the code, and stores
// the refresh token on the user.
func (h *MailboxHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	const op = "MailboxHandler.HandleCallback"

	user := middleware.GetUser(r.Context())
	q := r.URL.Query()

	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(q.Get("state"))) != 1 {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "OAuth state mismatch"))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/api/mailbox",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.isSecure,
		SameSite: http.SameSiteLaxMode,
	})

	code := q.Get("code")
	if code == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Missing authorization code"))
		return
	}

	refreshToken, err := h.connector.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Warn("OAuth code exchange failed", "user_id", user.ID, "error", err)
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Authorization could not be completed"))
		return
	}

	if err := h.userService.ConnectMailbox(r.Context(), user.ID, refreshToken); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, struct {
		Connected bool `json:"connected"`
	}{true})
}
