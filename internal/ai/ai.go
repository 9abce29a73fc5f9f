// Package ai defines the email summarization collaborator: the interface
// the sync pipeline calls and the shared types and error taxonomy its
// providers use.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Summarizer is the AI collaborator interface. The pipeline hands it only
// messages that passed dedup; every element of the result slice corresponds
// positionally to the input slice.
type Summarizer interface {
	SummarizeEmails(ctx context.Context, emails []Email) ([]Summary, error)
}

// Email is the input to summarization.
type Email struct {
	ID         string // mailbox message id, for logging only
	From       string
	Subject    string
	Snippet    string
	Body       string // full text body when available, else empty
	ReceivedAt time.Time
}

// Summary is the AI-derived triage result for one email.
type Summary struct {
	Subject        string `json:"subject"`
	Sender         string `json:"sender"`
	Summary        string `json:"summary"`
	Priority       string `json:"priority"` // low, normal, high
	Label          string `json:"label"`
	SuggestedReply string `json:"suggestedReply,omitempty"`
}

// ProviderConfig contains common configuration for AI providers.
type ProviderConfig struct {
	MaxRetries     int           // Maximum retry attempts for transient errors
	RetryBaseDelay time.Duration // Base delay for exponential backoff
	RequestTimeout time.Duration // Timeout for individual requests
}

// Error codes for AI provider operations
var (
	// EAIRateLimit indicates the API rate limit has been exceeded
	EAIRateLimit = errors.New("ai provider rate limit exceeded")

	// EAITimeout indicates the request timed out
	EAITimeout = errors.New("ai request timed out")

	// EAIUnavailable indicates the AI service is temporarily unavailable
	EAIUnavailable = errors.New("ai service temporarily unavailable")

	// EAIUnauthorized indicates invalid API credentials
	EAIUnauthorized = errors.New("ai provider authentication failed")

	// EAIBadResponse indicates the model returned output that could not be
	// parsed into summaries
	EAIBadResponse = errors.New("ai response could not be parsed")
)

// IsRetryable returns true if the error is a transient error that can be retried
func IsRetryable(err error) bool {
	return errors.Is(err, EAIRateLimit) ||
		errors.Is(err, EAITimeout) ||
		errors.Is(err, EAIUnavailable)
}

// WrapError wraps an error with context about the AI operation
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("ai %s: %w", operation, err)
}
