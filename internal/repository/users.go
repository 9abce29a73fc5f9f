package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/inboxpilot/inboxpilot/internal/domain"
)

// UserRepository defines methods for accessing user rows.
//
// The subscription columns hold the raw provider-reported values; tier
// resolution never happens in SQL.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error)
	// List returns all users, for the scheduled retention sweep.
	List(ctx context.Context) ([]domain.User, error)
	// UpdateSubscription writes the normalized status/plan pair produced by
	// a billing webhook. Both providers go through this one method.
	UpdateSubscription(ctx context.Context, id uuid.UUID, status, plan string) error
	SetStripeRefs(ctx context.Context, id uuid.UUID, customerID, subscriptionID string) error
	SetLemonRefs(ctx context.Context, id uuid.UUID, customerID, subscriptionID string) error
	SetGoogleRefreshToken(ctx context.Context, id uuid.UUID, token string) error
}

type userRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepository.
func NewUserRepo(db *sql.DB) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `
	id, email, password_hash, name,
	subscription_status, subscription_plan,
	stripe_customer_id, stripe_subscription_id,
	lemon_customer_id, lemon_subscription_id,
	google_refresh_token, created_at, updated_at
`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.SubscriptionStatus,
		&u.SubscriptionPlan,
		&u.StripeCustomerID,
		&u.StripeSubscription,
		&u.LemonCustomerID,
		&u.LemonSubscriptionID,
		&u.GoogleRefreshToken,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	const q = `
		INSERT INTO users (id, email, password_hash, name, subscription_status, subscription_plan)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, q,
		user.ID, user.Email, user.PasswordHash, user.Name,
		user.SubscriptionStatus, user.SubscriptionPlan,
	)
	if err != nil {
		return fmt.Errorf("creating user %s: %w", user.Email, err)
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching user %s: %w", id, err)
	}
	return u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching user by email: %w", err)
	}
	return u, nil
}

func (r *userRepo) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE stripe_customer_id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, customerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching user by stripe customer %s: %w", customerID, err)
	}
	return u, nil
}

func (r *userRepo) List(ctx context.Context) ([]domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *userRepo) UpdateSubscription(ctx context.Context, id uuid.UUID, status, plan string) error {
	const q = `
		UPDATE users
		SET subscription_status = $2, subscription_plan = $3, updated_at = now()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, q, id, status, plan)
	if err != nil {
		return fmt.Errorf("updating subscription for user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) SetStripeRefs(ctx context.Context, id uuid.UUID, customerID, subscriptionID string) error {
	const q = `
		UPDATE users
		SET stripe_customer_id = $2, stripe_subscription_id = $3, updated_at = now()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, q, id, customerID, subscriptionID); err != nil {
		return fmt.Errorf("setting stripe refs for user %s: %w", id, err)
	}
	return nil
}

func (r *userRepo) SetLemonRefs(ctx context.Context, id uuid.UUID, customerID, subscriptionID string) error {
	const q = `
		UPDATE users
		SET lemon_customer_id = $2, lemon_subscription_id = $3, updated_at = now()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, q, id, customerID, subscriptionID); err != nil {
		return fmt.Errorf("setting lemon squeezy refs for user %s: %w", id, err)
	}
	return nil
}

func (r *userRepo) SetGoogleRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	const q = `
		UPDATE users
		SET google_refresh_token = $2, updated_at = now()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, q, id, token)
	if err != nil {
		return fmt.Errorf("setting refresh token for user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
