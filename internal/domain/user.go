// Package domain contains core business types and interfaces.
//
// This file defines the User domain type and session types for
// authentication. The subscription fields are stored exactly as the billing
// providers report them; tier resolution happens through ResolvePlan at the
// moment a decision is needed, never ahead of time.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered InboxPilot account.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string // Never expose this in API responses
	Name         string

	// Raw provider-reported subscription state. Both billing providers
	// write these same two fields; nothing downstream branches on which
	// provider produced them.
	SubscriptionStatus string
	SubscriptionPlan   string // empty for subscriptions predating the field

	// Billing provider references.
	StripeCustomerID    string
	StripeSubscription  string
	LemonCustomerID     string
	LemonSubscriptionID string

	// Gmail access. Empty until the user connects their mailbox.
	GoogleRefreshToken string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Plan resolves the user's current tier from the raw subscription fields.
func (u *User) Plan() PlanTier {
	return ResolvePlan(u.SubscriptionStatus, u.SubscriptionPlan)
}

// MailboxConnected returns true once the user has completed the Gmail
// connection flow.
func (u *User) MailboxConnected() bool {
	return u.GoogleRefreshToken != ""
}

// DisplayName returns the user's name or email if name is empty.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Session represents an authenticated session.
//
// Sessions are stored with a hashed token. The raw token is only given to
// the client once, at login.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string // SHA-256 hash of the session token
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// RegisterParams contains the validated parameters for account registration.
type RegisterParams struct {
	Email    string
	Password string // Raw password, hashed by the service
	Name     string
}

// LoginResult contains the result of a successful login.
type LoginResult struct {
	User  *User
	Token string // Raw session token (not hashed), returned once
}

// SubscriptionUpdate is the normalized write surface both billing webhook
// collaborators produce. Status and PlanName land on the user row as-is.
type SubscriptionUpdate struct {
	Status   string
	PlanName string
}
