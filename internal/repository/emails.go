package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/inboxpilot/inboxpilot/internal/domain"
)

// ListEmailsParams filters and pages the email listing.
type ListEmailsParams struct {
	UserID   uuid.UUID
	Archived *bool  // nil means both
	Priority string // empty means any
	Label    string // empty means any
	Limit    int
	Offset   int
}

// EmailCounts is the raw count view behind the retention status report.
type EmailCounts struct {
	Total              int64
	Active             int64
	Archived           int64
	EligibleForArchive int64
}

// EmailRepository stores AI-processed email summaries and drives their
// retention lifecycle. Archive and purge are predicate updates over current
// rows, which is what makes overlapping sweeps safe.
type EmailRepository interface {
	// Upsert writes a summary keyed on (user_id, gmail_message_id). A
	// re-surfaced message updates the AI-derived fields in place;
	// received_at is only written on first insert.
	Upsert(ctx context.Context, rec *domain.EmailRecord) error
	// ExistingMessageIDs reports which of the given Gmail message IDs
	// already have a record for this user, for dedup before AI spend.
	ExistingMessageIDs(ctx context.Context, userID uuid.UUID, messageIDs []string) (map[string]bool, error)
	List(ctx context.Context, params ListEmailsParams) ([]domain.EmailRecord, error)
	// ListAll returns every record for a user, for the account export.
	ListAll(ctx context.Context, userID uuid.UUID) ([]domain.EmailRecord, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	// ArchiveOlderThan marks active records with received_at < cutoff as
	// archived at now. Returns how many rows transitioned this call.
	ArchiveOlderThan(ctx context.Context, userID uuid.UUID, cutoff, now time.Time) (int64, error)
	// PurgeArchivedBefore permanently deletes archived records with
	// archived_at < cutoff. No tombstone remains.
	PurgeArchivedBefore(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error)
	// Counts returns the totals the retention status report exposes,
	// with eligibility computed against archiveCutoff.
	Counts(ctx context.Context, userID uuid.UUID, archiveCutoff time.Time) (EmailCounts, error)
}

type emailRepo struct {
	db *sql.DB
}

// NewEmailRepo creates a new EmailRepository.
func NewEmailRepo(db *sql.DB) EmailRepository {
	return &emailRepo{db: db}
}

const emailColumns = `
	id, user_id, gmail_message_id, sender, subject, snippet,
	summary, priority, label, suggested_reply, gmail_label_ids,
	is_read, received_at, archived, archived_at, created_at, updated_at
`

func scanEmail(row interface{ Scan(...any) error }) (*domain.EmailRecord, error) {
	var rec domain.EmailRecord
	var archivedAt sql.NullTime
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.GmailMessageID,
		&rec.Sender,
		&rec.Subject,
		&rec.Snippet,
		&rec.Summary,
		&rec.Priority,
		&rec.Label,
		&rec.SuggestedReply,
		pq.Array(&rec.GmailLabelIDs),
		&rec.IsRead,
		&rec.ReceivedAt,
		&rec.Archived,
		&archivedAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if archivedAt.Valid {
		t := archivedAt.Time
		rec.ArchivedAt = &t
	}
	return &rec, nil
}

func (r *emailRepo) Upsert(ctx context.Context, rec *domain.EmailRecord) error {
	const q = `
		INSERT INTO email_summaries (
			id, user_id, gmail_message_id, sender, subject, snippet,
			summary, priority, label, suggested_reply, gmail_label_ids,
			received_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, gmail_message_id)
		DO UPDATE SET
			summary = EXCLUDED.summary,
			priority = EXCLUDED.priority,
			label = EXCLUDED.label,
			suggested_reply = EXCLUDED.suggested_reply,
			gmail_label_ids = EXCLUDED.gmail_label_ids,
			updated_at = now()
	`
	_, err := r.db.ExecContext(ctx, q,
		rec.ID, rec.UserID, rec.GmailMessageID, rec.Sender, rec.Subject, rec.Snippet,
		rec.Summary, rec.Priority, rec.Label, rec.SuggestedReply, pq.Array(rec.GmailLabelIDs),
		rec.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting summary for message %s: %w", rec.GmailMessageID, err)
	}
	return nil
}

func (r *emailRepo) ExistingMessageIDs(ctx context.Context, userID uuid.UUID, messageIDs []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(messageIDs))
	if len(messageIDs) == 0 {
		return existing, nil
	}
	const q = `
		SELECT gmail_message_id
		FROM email_summaries
		WHERE user_id = $1
		  AND gmail_message_id = ANY($2)
	`
	rows, err := r.db.QueryContext(ctx, q, userID, pq.Array(messageIDs))
	if err != nil {
		return nil, fmt.Errorf("checking existing messages for user %s: %w", userID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning message id: %w", err)
		}
		existing[id] = true
	}
	return existing, rows.Err()
}

func (r *emailRepo) List(ctx context.Context, params ListEmailsParams) ([]domain.EmailRecord, error) {
	q := `SELECT ` + emailColumns + ` FROM email_summaries WHERE user_id = $1`
	args := []any{params.UserID}

	if params.Archived != nil {
		args = append(args, *params.Archived)
		q += fmt.Sprintf(" AND archived = $%d", len(args))
	}
	if params.Priority != "" {
		args = append(args, params.Priority)
		q += fmt.Sprintf(" AND priority = $%d", len(args))
	}
	if params.Label != "" {
		args = append(args, params.Label)
		q += fmt.Sprintf(" AND label = $%d", len(args))
	}

	q += " ORDER BY received_at DESC"
	if params.Limit > 0 {
		args = append(args, params.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if params.Offset > 0 {
		args = append(args, params.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing emails for user %s: %w", params.UserID, err)
	}
	defer rows.Close()

	var records []domain.EmailRecord
	for rows.Next() {
		rec, err := scanEmail(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning email row: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (r *emailRepo) ListAll(ctx context.Context, userID uuid.UUID) ([]domain.EmailRecord, error) {
	return r.List(ctx, ListEmailsParams{UserID: userID})
}

func (r *emailRepo) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	const q = `
		UPDATE email_summaries
		SET is_read = true, updated_at = now()
		WHERE id = $1 AND user_id = $2
	`
	res, err := r.db.ExecContext(ctx, q, id, userID)
	if err != nil {
		return fmt.Errorf("marking email %s read: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *emailRepo) ArchiveOlderThan(ctx context.Context, userID uuid.UUID, cutoff, now time.Time) (int64, error) {
	const q = `
		UPDATE email_summaries
		SET archived = true, archived_at = $3, updated_at = now()
		WHERE user_id = $1
		  AND archived = false
		  AND received_at < $2
	`
	res, err := r.db.ExecContext(ctx, q, userID, cutoff, now)
	if err != nil {
		return 0, fmt.Errorf("archiving emails for user %s: %w", userID, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *emailRepo) PurgeArchivedBefore(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error) {
	const q = `
		DELETE FROM email_summaries
		WHERE user_id = $1
		  AND archived = true
		  AND archived_at < $2
	`
	res, err := r.db.ExecContext(ctx, q, userID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging archived emails for user %s: %w", userID, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *emailRepo) Counts(ctx context.Context, userID uuid.UUID, archiveCutoff time.Time) (EmailCounts, error) {
	const q = `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE archived = false),
			COUNT(*) FILTER (WHERE archived = true),
			COUNT(*) FILTER (WHERE archived = false AND received_at < $2)
		FROM email_summaries
		WHERE user_id = $1
	`
	var c EmailCounts
	err := r.db.QueryRowContext(ctx, q, userID, archiveCutoff).Scan(
		&c.Total, &c.Active, &c.Archived, &c.EligibleForArchive,
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return EmailCounts{}, fmt.Errorf("counting emails for user %s: %w", userID, err)
	}
	return c, nil
}
