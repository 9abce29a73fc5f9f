package handler

import (
	"log/slog"
	"net/http"

	"github.com/inboxpilot/inboxpilot/internal/middleware"
	"github.com/inboxpilot/inboxpilot/internal/service"
)

// SyncHandler triggers an inbox sync for the authenticated user.
type SyncHandler struct {
	syncService service.SyncService
	logger      *slog.Logger
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(syncService service.SyncService, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{syncService: syncService, logger: logger}
}

// HandleSync fetches unread mail, summarizes what is new, and records usage.
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	result, err := h.syncService.Run(r.Context(), user)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
