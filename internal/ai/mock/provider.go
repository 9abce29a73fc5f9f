// Package mock provides a canned ai.Summarizer for development and tests.
package mock

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inboxpilot/inboxpilot/internal/ai"
)

// Provider is a mock summarizer. Responses and errors are configurable for
// tests; by default each email gets a deterministic canned summary.
type Provider struct {
	logger *slog.Logger

	// Configurable responses for testing
	SummarizeResponse []ai.Summary
	SummarizeError    error

	// Call tracking for testing
	SummarizeCalls int
	LastBatchSize  int
}

// New creates a new mock provider
func New(logger *slog.Logger) *Provider {
	return &Provider{
		logger: logger,
	}
}

// SummarizeEmails returns one canned summary per input email.
func (p *Provider) SummarizeEmails(ctx context.Context, emails []ai.Email) ([]ai.Summary, error) {
	p.SummarizeCalls++
	p.LastBatchSize = len(emails)

	if p.SummarizeError != nil {
		return nil, p.SummarizeError
	}
	if p.SummarizeResponse != nil {
		return p.SummarizeResponse, nil
	}

	summaries := make([]ai.Summary, 0, len(emails))
	for i, e := range emails {
		summaries = append(summaries, ai.Summary{
			Subject:  e.Subject,
			Sender:   e.From,
			Summary:  fmt.Sprintf("Mock summary of message %d", i+1),
			Priority: "normal",
			Label:    "other",
		})
	}

	if p.logger != nil {
		p.logger.Debug("Mock summarizer invoked", "batch_size", len(emails))
	}
	return summaries, nil
}
