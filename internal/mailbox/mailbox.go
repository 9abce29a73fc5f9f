// Package mailbox defines the mail ingestion collaborator: the interface
// the sync pipeline uses to pull unseen messages from a user's mailbox.
// The policy engine never talks to Gmail directly; it asks a Source for the
// recent unread window and works from there.
package mailbox

import (
	"context"
	"errors"
	"time"
)

// Message is one fetched mailbox message, already reduced to the fields
// the triage pipeline consumes.
type Message struct {
	ID         string // provider message id, unique per mailbox
	From       string
	Subject    string
	Snippet    string
	Body       string // plain-text body when extractable, else empty
	LabelIDs   []string
	ReceivedAt time.Time // original message time, never ingestion time
}

// Source fetches recent unread messages for one user. The refresh token is
// the per-user credential stored at mailbox-connect time.
type Source interface {
	FetchUnread(ctx context.Context, refreshToken string) ([]Message, error)
}

// ErrNotConnected indicates the user has no usable mailbox credential.
var ErrNotConnected = errors.New("mailbox not connected")
