package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/inboxpilot/inboxpilot/internal/domain"
	"github.com/inboxpilot/inboxpilot/internal/middleware"
	"github.com/inboxpilot/inboxpilot/internal/service"
)

// CleanupHandler exposes the per-user retention sweep and its status view.
type CleanupHandler struct {
	retention service.RetentionService
	catalog   domain.Catalog
	logger    *slog.Logger
}

// NewCleanupHandler creates a new CleanupHandler.
func NewCleanupHandler(retention service.RetentionService, catalog domain.Catalog, logger *slog.Logger) *CleanupHandler {
	return &CleanupHandler{retention: retention, catalog: catalog, logger: logger}
}

// HandleCleanup runs one archive and purge pass for the authenticated user.
func (h *CleanupHandler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	result, err := h.retention.Sweep(r.Context(), user)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	tier := user.Plan()
	retentionDays := h.catalog.RetentionDays(tier)

	respondJSON(w, http.StatusOK, struct {
		Archived      int64  `json:"archived"`
		Deleted       int64  `json:"deleted"`
		RetentionDays int    `json:"retentionDays"`
		Plan          string `json:"plan"`
		Message       string `json:"message"`
	}{
		Archived:      result.ArchivedCount,
		Deleted:       result.PurgedCount,
		RetentionDays: retentionDays,
		Plan:          string(tier),
		Message:       fmt.Sprintf("Archived %d emails older than %d days, deleted %d expired archives", result.ArchivedCount, retentionDays, result.PurgedCount),
	})
}

// HandleStatus reports stored, archived, and archive-eligible counts along
// with the plan's retention window.
func (h *CleanupHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	status, err := h.retention.Status(r.Context(), user)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, status)
}
