package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inboxpilot/inboxpilot/internal/domain"
)

// UsageRepository tracks the per-user, per-day prompt ledger that quota
// enforcement and analytics read.
type UsageRepository interface {
	// AddPrompts adds count to the (userID, day) row, creating it if
	// absent. The upsert-increment is a single atomic statement: two
	// concurrent syncs for the same user on the same day must both land,
	// because a lost increment lets the user exceed quota.
	AddPrompts(ctx context.Context, userID uuid.UUID, day time.Time, count int) error
	// MonthlyPrompts sums prompts over the calendar month containing ref,
	// inclusive on both ends.
	MonthlyPrompts(ctx context.Context, userID uuid.UUID, ref time.Time) (int, error)
	// History returns ledger rows with from <= day <= to, ascending.
	History(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.UsageDay, error)
	// PurgeOlderThan deletes rows with day < cutoff and reports how many.
	PurgeOlderThan(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error)
}

type usageRepo struct {
	db *sql.DB
}

// NewUsageRepo creates a new UsageRepository.
func NewUsageRepo(db *sql.DB) UsageRepository {
	return &usageRepo{db: db}
}

func (r *usageRepo) AddPrompts(ctx context.Context, userID uuid.UUID, day time.Time, count int) error {
	const q = `
		INSERT INTO usage_daily (user_id, day, prompts)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, day)
		DO UPDATE SET prompts = usage_daily.prompts + EXCLUDED.prompts
	`
	if _, err := r.db.ExecContext(ctx, q, userID, domain.DayOf(day), count); err != nil {
		return fmt.Errorf("recording %d prompts for user %s: %w", count, userID, err)
	}
	return nil
}

func (r *usageRepo) MonthlyPrompts(ctx context.Context, userID uuid.UUID, ref time.Time) (int, error) {
	start, end := domain.MonthBounds(ref)
	const q = `
		SELECT COALESCE(SUM(prompts), 0)
		FROM usage_daily
		WHERE user_id = $1
		  AND day >= $2
		  AND day <= $3
	`
	var total int
	if err := r.db.QueryRowContext(ctx, q, userID, start, end).Scan(&total); err != nil {
		return 0, fmt.Errorf("summing monthly prompts for user %s: %w", userID, err)
	}
	return total, nil
}

func (r *usageRepo) History(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.UsageDay, error) {
	const q = `
		SELECT user_id, day, prompts
		FROM usage_daily
		WHERE user_id = $1
		  AND day >= $2
		  AND day <= $3
		ORDER BY day ASC
	`
	rows, err := r.db.QueryContext(ctx, q, userID, domain.DayOf(from), domain.DayOf(to))
	if err != nil {
		return nil, fmt.Errorf("loading usage history for user %s: %w", userID, err)
	}
	defer rows.Close()

	var history []domain.UsageDay
	for rows.Next() {
		var d domain.UsageDay
		if err := rows.Scan(&d.UserID, &d.Day, &d.Prompts); err != nil {
			return nil, fmt.Errorf("scanning usage row: %w", err)
		}
		d.Day = d.Day.UTC()
		history = append(history, d)
	}
	return history, rows.Err()
}

func (r *usageRepo) PurgeOlderThan(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM usage_daily WHERE user_id = $1 AND day < $2`
	res, err := r.db.ExecContext(ctx, q, userID, domain.DayOf(cutoff))
	if err != nil {
		return 0, fmt.Errorf("purging usage rows for user %s: %w", userID, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
