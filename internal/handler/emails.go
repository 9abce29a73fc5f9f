package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/inboxpilot/inboxpilot/internal/domain"
	"github.com/inboxpilot/inboxpilot/internal/middleware"
	"github.com/inboxpilot/inboxpilot/internal/repository"
)

const (
	defaultEmailPageSize = 50
	maxEmailPageSize     = 200
)

// EmailHandler serves the processed-email listing and mark-read.
type EmailHandler struct {
	emails repository.EmailRepository
	logger *slog.Logger
}

// NewEmailHandler creates a new EmailHandler.
func NewEmailHandler(emails repository.EmailRepository, logger *slog.Logger) *EmailHandler {
	return &EmailHandler{emails: emails, logger: logger}
}

// emailPayload is the wire shape of one processed email.
type emailPayload struct {
	ID             string     `json:"id"`
	GmailMessageID string     `json:"gmailMessageId"`
	Sender         string     `json:"sender"`
	Subject        string     `json:"subject"`
	Snippet        string     `json:"snippet"`
	Summary        string     `json:"summary"`
	Priority       string     `json:"priority"`
	Label          string     `json:"label"`
	SuggestedReply string     `json:"suggestedReply,omitempty"`
	IsRead         bool       `json:"isRead"`
	ReceivedAt     time.Time  `json:"receivedAt"`
	Archived       bool       `json:"archived"`
	ArchivedAt     *time.Time `json:"archivedAt,omitempty"`
}

func toEmailPayload(rec *domain.EmailRecord) emailPayload {
	return emailPayload{
		ID:             rec.ID.String(),
		GmailMessageID: rec.GmailMessageID,
		Sender:         rec.Sender,
		Subject:        rec.Subject,
		Snippet:        rec.Snippet,
		Summary:        rec.Summary,
		Priority:       rec.Priority,
		Label:          rec.Label,
		SuggestedReply: rec.SuggestedReply,
		IsRead:         rec.IsRead,
		ReceivedAt:     rec.ReceivedAt,
		Archived:       rec.Archived,
		ArchivedAt:     rec.ArchivedAt,
	}
}

// HandleList returns the user's processed emails, newest first. Supports
// archived, priority, label, limit, and offset query parameters.
func (h *EmailHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	q := r.URL.Query()

	params := repository.ListEmailsParams{
		UserID:   user.ID,
		Priority: q.Get("priority"),
		Label:    q.Get("label"),
		Limit:    defaultEmailPageSize,
	}

	if v := q.Get("archived"); v != "" {
		archived, err := strconv.ParseBool(v)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid("EmailHandler.HandleList", "archived must be true or false"))
			return
		}
		params.Archived = &archived
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			ErrorResponse(w, r, h.logger, domain.Invalid("EmailHandler.HandleList", "limit must be a positive integer"))
			return
		}
		params.Limit = min(limit, maxEmailPageSize)
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			ErrorResponse(w, r, h.logger, domain.Invalid("EmailHandler.HandleList", "offset must be a non-negative integer"))
			return
		}
		params.Offset = offset
	}

	records, err := h.emails.List(r.Context(), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, "EmailHandler.HandleList", "Failed to list emails"))
		return
	}

	payload := make([]emailPayload, 0, len(records))
	for i := range records {
		payload = append(payload, toEmailPayload(&records[i]))
	}

	respondJSON(w, http.StatusOK, struct {
		Emails []emailPayload `json:"emails"`
		Count  int            `json:"count"`
	}{payload, len(payload)})
}

// HandleMarkRead marks one of the user's emails as read.
func (h *EmailHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("EmailHandler.HandleMarkRead", "Invalid email id"))
		return
	}

	if err := h.emails.MarkRead(r.Context(), user.ID, id); err != nil {
		if err == repository.ErrNotFound {
			NotFoundResponse(w, r, h.logger)
			return
		}
		ErrorResponse(w, r, h.logger, domain.Internal(err, "EmailHandler.HandleMarkRead", "Failed to mark email as read"))
		return
	}

	respondJSON(w, http.StatusOK, struct {
		Read bool `json:"read"`
	}{true})
}
