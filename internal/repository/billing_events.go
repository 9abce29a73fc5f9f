package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// BillingEventRepository persists raw webhook events from both billing
// providers for audit and replay. Nothing in the policy engine reads these
// back; they exist so a disputed subscription state can be reconstructed.
type BillingEventRepository interface {
	Insert(ctx context.Context, provider, eventType, externalID string, payload []byte) error
}

type billingEventRepo struct {
	db *sql.DB
}

// NewBillingEventRepo creates a new BillingEventRepository.
func NewBillingEventRepo(db *sql.DB) BillingEventRepository {
	return &billingEventRepo{db: db}
}

func (r *billingEventRepo) Insert(ctx context.Context, provider, eventType, externalID string, payload []byte) error {
	var raw pqtype.NullRawMessage
	if len(payload) > 0 {
		raw = pqtype.NullRawMessage{RawMessage: payload, Valid: true}
	}

	const q = `
		INSERT INTO billing_events (id, provider, event_type, external_id, payload)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, q, uuid.New(), provider, eventType, externalID, raw); err != nil {
		return fmt.Errorf("recording %s webhook event %s: %w", provider, eventType, err)
	}
	return nil
}
