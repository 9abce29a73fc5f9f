package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/inboxpilot/inboxpilot/internal/domain"
	"github.com/inboxpilot/inboxpilot/internal/service"
)

// CronHandler serves the scheduler-invoked maintenance endpoints. Requests
// must carry "Authorization: Bearer <secret>" matching the configured cron
// secret.
type CronHandler struct {
	retention service.RetentionService
	users     service.UserService
	secret    string
	logger    *slog.Logger
}

// NewCronHandler creates a new CronHandler.
func NewCronHandler(retention service.RetentionService, users service.UserService, secret string, logger *slog.Logger) *CronHandler {
	return &CronHandler{
		retention: retention,
		users:     users,
		secret:    secret,
		logger:    logger,
	}
}

func (h *CronHandler) authorized(r *http.Request) bool {
	if h.secret == "" {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}

// HandleSweepAll runs the retention sweep across every account. A partial
// failure still returns 200 with the collected errors so the scheduler sees
// what was done.
func (h *CronHandler) HandleSweepAll(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	summary, err := h.retention.SweepAll(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*domain.SweepSummary
	}{len(summary.Errors) == 0, summary})
}

// HandleSessionCleanup deletes expired sessions.
func (h *CronHandler) HandleSessionCleanup(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	deleted, err := h.users.DeleteExpiredSessions(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, struct {
		Deleted int64 `json:"deleted"`
	}{deleted})
}
