// Package service contains the business logic layer.
//
// This file implements the sync orchestrator: the pipeline that pulls unread
// mail, gates it on quota, AI-processes the unseen messages, stores the
// summaries, and commits the ledger increment.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/inboxpilot/inboxpilot/internal/ai"
	"github.com/inboxpilot/inboxpilot/internal/domain"
	"github.com/inboxpilot/inboxpilot/internal/mailbox"
	"github.com/inboxpilot/inboxpilot/internal/metrics"
	"github.com/inboxpilot/inboxpilot/internal/repository"
)

// cleanupTimeout bounds the post-sync retention pass, which runs detached
// from the request.
const cleanupTimeout = 30 * time.Second

// SyncResult reports what one sync run did.
type SyncResult struct {
	Fetched   int `json:"fetched"`
	Skipped   int `json:"skipped"`
	Processed int `json:"processed"`
}

// SyncService runs the mailbox sync pipeline.
type SyncService interface {
	// Run executes one sync for the user. The quota gate is evaluated
	// against the pre-batch monthly total: a denied run returns before
	// any mailbox or AI call, and an admitted batch commits in full even
	// if it crosses the limit. Only genuinely new messages count against
	// quota; re-surfaced ones update in place.
	Run(ctx context.Context, user *domain.User) (*SyncResult, error)
}

type syncService struct {
	source     mailbox.Source
	summarizer ai.Summarizer
	quota      QuotaService
	usage      UsageService
	retention  RetentionService
	emails     repository.EmailRepository
	logger     *slog.Logger
	now        func() time.Time

	// cleanupDone, when non-nil, is signalled after the detached post-sync
	// cleanup finishes. Tests use it to wait for the goroutine.
	cleanupDone chan struct{}
}

// NewSyncService creates a new SyncService.
func NewSyncService(
	source mailbox.Source,
	summarizer ai.Summarizer,
	quota QuotaService,
	usage UsageService,
	retention RetentionService,
	emails repository.EmailRepository,
	logger *slog.Logger,
) SyncService {
	return &syncService{
		source:     source,
		summarizer: summarizer,
		quota:      quota,
		usage:      usage,
		retention:  retention,
		emails:     emails,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *syncService) Run(ctx context.Context, user *domain.User) (*SyncResult, error) {
	const op = "SyncService.Run"

	if !user.MailboxConnected() {
		return nil, domain.Invalid(op, "Gmail is not connected")
	}

	// The gate runs before any external call. A denial costs nothing.
	if err := s.quota.Check(ctx, user); err != nil {
		metrics.SyncsTotal.WithLabelValues("denied").Inc()
		return nil, err
	}

	messages, err := s.source.FetchUnread(ctx, user.GoogleRefreshToken)
	if err != nil {
		metrics.SyncsTotal.WithLabelValues("error").Inc()
		return nil, domain.Internal(err, op, "Failed to fetch mailbox messages")
	}

	result := &SyncResult{Fetched: len(messages)}
	if len(messages) == 0 {
		metrics.SyncsTotal.WithLabelValues("ok").Inc()
		return result, nil
	}

	// Dedup before AI spend. The mailbox re-surfaces anything still
	// unread, and those must not consume quota again.
	ids := make([]string, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}
	existing, err := s.emails.ExistingMessageIDs(ctx, user.ID, ids)
	if err != nil {
		metrics.SyncsTotal.WithLabelValues("error").Inc()
		return nil, domain.Internal(err, op, "Failed to check for existing messages")
	}

	var unseen []mailbox.Message
	for _, m := range messages {
		if existing[m.ID] {
			result.Skipped++
			continue
		}
		unseen = append(unseen, m)
	}
	if len(unseen) == 0 {
		metrics.SyncsTotal.WithLabelValues("ok").Inc()
		return result, nil
	}

	summaries, err := s.summarizer.SummarizeEmails(ctx, toAIBatch(unseen))
	if err != nil {
		metrics.SyncsTotal.WithLabelValues("error").Inc()
		metrics.AIAPICalls.WithLabelValues("error").Inc()
		return nil, domain.Internal(err, op, "Failed to summarize emails")
	}
	metrics.AIAPICalls.WithLabelValues("success").Inc()

	for i, msg := range unseen {
		rec := recordFromSummary(user.ID, msg, summaries[i])
		if err := s.emails.Upsert(ctx, rec); err != nil {
			metrics.SyncsTotal.WithLabelValues("error").Inc()
			return nil, domain.Internal(err, op, "Failed to store email summary")
		}
		result.Processed++
	}

	// Commit exactly the newly-processed count, never the fetched count.
	if err := s.usage.Record(ctx, user.ID, s.now(), result.Processed); err != nil {
		metrics.SyncsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.SyncsTotal.WithLabelValues("ok").Inc()
	metrics.EmailsProcessed.Add(float64(result.Processed))
	s.logger.Info("Sync completed",
		"user_id", user.ID,
		"fetched", result.Fetched,
		"skipped", result.Skipped,
		"processed", result.Processed,
	)

	// Best-effort retention pass. Its failure never surfaces in the sync
	// response; it is logged and counted, nothing more.
	s.cleanupAfterSync(user)

	return result, nil
}

func (s *syncService) cleanupAfterSync(user *domain.User) {
	done := s.cleanupDone
	go func() {
		if done != nil {
			defer close(done)
		}
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()

		if _, err := s.retention.Sweep(ctx, user); err != nil {
			metrics.SweepErrors.Inc()
			s.logger.Warn("Post-sync cleanup failed", "user_id", user.ID, "error", err)
		}
	}()
}

func toAIBatch(messages []mailbox.Message) []ai.Email {
	batch := make([]ai.Email, len(messages))
	for i, m := range messages {
		batch[i] = ai.Email{
			ID:         m.ID,
			From:       m.From,
			Subject:    m.Subject,
			Snippet:    m.Snippet,
			Body:       m.Body,
			ReceivedAt: m.ReceivedAt,
		}
	}
	return batch
}

func recordFromSummary(userID uuid.UUID, msg mailbox.Message, sum ai.Summary) *domain.EmailRecord {
	priority := sum.Priority
	switch priority {
	case domain.PriorityHigh, domain.PriorityNormal, domain.PriorityLow:
	default:
		priority = domain.PriorityNormal
	}
	return &domain.EmailRecord{
		ID:             uuid.New(),
		UserID:         userID,
		GmailMessageID: msg.ID,
		Sender:         msg.From,
		Subject:        msg.Subject,
		Snippet:        msg.Snippet,
		Summary:        sum.Summary,
		Priority:       priority,
		Label:          sum.Label,
		SuggestedReply: sum.SuggestedReply,
		GmailLabelIDs:  msg.LabelIDs,
		ReceivedAt:     msg.ReceivedAt,
	}
}
