package handler

import (
	"log/slog"
	"net/http"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/inboxpilot/inboxpilot/internal/middleware"
	"github.com/inboxpilot/inboxpilot/internal/service"
)

// UsageHandler serves the usage dashboard payload.
type UsageHandler struct {
	usage  service.UsageService
	quota  service.QuotaService
	logger *slog.Logger
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(usage service.UsageService, quota service.QuotaService, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{usage: usage, quota: quota, logger: logger}
}

var planTitle = cases.Title(language.English)

// HandleUsage returns the analytics report plus the current quota position.
func (h *UsageHandler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	report, err := h.usage.Report(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	quota, err := h.quota.Status(r.Context(), user)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, struct {
		Plan      string               `json:"plan"`
		PlanLabel string               `json:"planLabel"`
		Quota     *service.QuotaStatus `json:"quota"`
		Report    *service.UsageReport `json:"report"`
	}{
		Plan:      string(user.Plan()),
		PlanLabel: planTitle.String(string(user.Plan())),
		Quota:     quota,
		Report:    report,
	})
}
