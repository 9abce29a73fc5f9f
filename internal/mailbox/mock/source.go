// Package mock provides an in-memory mailbox source for tests.
package mock

import (
	"context"

	"github.com/inboxpilot/inboxpilot/internal/mailbox"
)

// Source implements mailbox.Source with canned messages.
type Source struct {
	Messages []mailbox.Message
	Err      error

	FetchCalls int
	LastToken  string
}

func (s *Source) FetchUnread(ctx context.Context, refreshToken string) ([]mailbox.Message, error) {
	s.FetchCalls++
	s.LastToken = refreshToken
	if s.Err != nil {
		return nil, s.Err
	}
	if refreshToken == "" {
		return nil, mailbox.ErrNotConnected
	}
	return s.Messages, nil
}
