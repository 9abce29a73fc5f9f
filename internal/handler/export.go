package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/inboxpilot/inboxpilot/internal/domain"
	"github.com/inboxpilot/inboxpilot/internal/middleware"
	"github.com/inboxpilot/inboxpilot/internal/repository"
	"github.com/inboxpilot/inboxpilot/internal/service"
	"github.com/inboxpilot/inboxpilot/internal/storage"
)

// exportURLTTL bounds how long a generated download link stays valid.
const exportURLTTL = 24 * time.Hour

// ExportHandler writes a full account snapshot to object storage and hands
// back a download link.
type ExportHandler struct {
	emails  repository.EmailRepository
	usage   service.UsageService
	storage storage.Storage
	logger  *slog.Logger

	now func() time.Time
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(emails repository.EmailRepository, usage service.UsageService, store storage.Storage, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		emails:  emails,
		usage:   usage,
		storage: store,
		logger:  logger,
		now:     time.Now,
	}
}

// accountExport is the snapshot document written to storage.
type accountExport struct {
	ExportedAt time.Time         `json:"exportedAt"`
	User       userPayload       `json:"user"`
	Emails     []emailPayload    `json:"emails"`
	Usage      []domain.UsageDay `json:"usage"`
}

// HandleExport assembles the user's emails and usage history into one JSON
// document, stores it, and returns the object key and URL.
func (h *ExportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "ExportHandler.HandleExport"

	user := middleware.GetUser(r.Context())
	now := h.now().UTC()

	records, err := h.emails.ListAll(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to load emails for export"))
		return
	}

	history, err := h.usage.History(r.Context(), user.ID, time.Time{}, now)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	doc := accountExport{
		ExportedAt: now,
		User:       toUserPayload(user),
		Emails:     make([]emailPayload, 0, len(records)),
		Usage:      history,
	}
	for i := range records {
		doc.Emails = append(doc.Emails, toEmailPayload(&records[i]))
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to encode export"))
		return
	}

	key := storage.ExportKey(user.ID, now)
	if err := h.storage.Put(r.Context(), key, bytes.NewReader(data), storage.PutOptions{
		ContentType: "application/json",
	}); err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to store export"))
		return
	}

	url, err := h.storage.URL(r.Context(), key, exportURLTTL)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to generate export URL"))
		return
	}

	h.logger.Info("Account export written", "user_id", user.ID, "key", key, "emails", len(doc.Emails))

	respondJSON(w, http.StatusOK, struct {
		Key        string    `json:"key"`
		URL        string    `json:"url"`
		ExpiresAt  time.Time `json:"expiresAt"`
		EmailCount int       `json:"emailCount"`
		UsageDays  int       `json:"usageDays"`
	}{key, url, now.Add(exportURLTTL), len(doc.Emails), len(history)})
}
