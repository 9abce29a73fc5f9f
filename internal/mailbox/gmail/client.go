// Package gmail implements mailbox.Source against the Gmail REST API using
// per-user OAuth refresh tokens.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/inboxpilot/inboxpilot/internal/mailbox"
)

const (
	user = "me"

	// unreadQuery fetches unread inbox mail from the last 3 days only; the
	// sync window deliberately stays small so one sync never drags in a
	// whole backlog.
	unreadQuery = "in:inbox is:unread newer_than:3d -in:spam -in:trash"

	// maxResults caps one fetch.
	maxResults = 500
)

// Config holds the OAuth application credentials shared by all users.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Client implements mailbox.Source.
type Client struct {
	oauth  *oauth2.Config
	logger *slog.Logger
}

// New creates a Gmail client. The OAuth client credentials identify the
// application; each FetchUnread call supplies the user's own refresh token.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("google oauth client credentials are required")
	}
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gmail.GmailReadonlyScope},
		},
		logger: logger,
	}, nil
}

// AuthURL returns the Google consent URL for the connect flow. Offline
// access with forced consent is required or Google omits the refresh token
// on repeat authorizations.
func (c *Client) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades an authorization code for the user's refresh token.
func (c *Client) Exchange(ctx context.Context, code string) (string, error) {
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchanging authorization code: %w", err)
	}
	if tok.RefreshToken == "" {
		return "", fmt.Errorf("google did not return a refresh token")
	}
	return tok.RefreshToken, nil
}

// FetchUnread lists recent unread inbox messages and loads their details.
func (c *Client) FetchUnread(ctx context.Context, refreshToken string) ([]mailbox.Message, error) {
	if refreshToken == "" {
		return nil, mailbox.ErrNotConnected
	}

	ts := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	srv, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}

	list, err := srv.Users.Messages.List(user).Q(unreadQuery).MaxResults(maxResults).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("listing unread messages: %w", err)
	}
	if len(list.Messages) == 0 {
		return nil, nil
	}

	messages := make([]mailbox.Message, 0, len(list.Messages))
	for _, ref := range list.Messages {
		msg, err := srv.Users.Messages.Get(user, ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			// One unfetchable message should not sink the batch.
			c.logger.Warn("Failed to fetch message details", "message_id", ref.Id, "error", err)
			continue
		}
		messages = append(messages, parseMessage(msg))
	}
	return messages, nil
}

func parseMessage(msg *gmail.Message) mailbox.Message {
	m := mailbox.Message{
		ID:       msg.Id,
		Snippet:  msg.Snippet,
		LabelIDs: msg.LabelIds,
	}

	var dateHeader string
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch h.Name {
			case "From":
				m.From = h.Value
			case "Subject":
				m.Subject = h.Value
			case "Date":
				dateHeader = h.Value
			}
		}
		m.Body = plainTextBody(msg.Payload)
	}

	m.ReceivedAt = parseReceivedAt(dateHeader, msg.InternalDate)
	return m
}

// parseReceivedAt prefers the Date header, falling back to Gmail's internal
// millisecond timestamp. Date headers in the wild come in several shapes.
func parseReceivedAt(header string, internalDate int64) time.Time {
	formats := []string{
		time.RFC1123Z,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"2 Jan 2006 15:04:05 -0700",
		time.RFC1123,
	}
	cleaned := stripTrailingParen(strings.TrimSpace(header))
	for _, f := range formats {
		if t, err := time.Parse(f, cleaned); err == nil {
			return t
		}
	}
	if internalDate > 0 {
		return time.UnixMilli(internalDate)
	}
	return time.Now().UTC()
}

func stripTrailingParen(s string) string {
	if open := strings.LastIndex(s, " ("); open != -1 {
		if end := strings.LastIndex(s, ")"); end > open {
			return strings.TrimSpace(s[:open] + s[end+1:])
		}
	}
	return s
}

// plainTextBody walks the MIME tree for the first decodable text/plain part.
func plainTextBody(payload *gmail.MessagePart) string {
	if payload.MimeType == "text/plain" && payload.Body != nil && payload.Body.Data != "" {
		if data, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			return string(data)
		}
	}
	for _, part := range payload.Parts {
		mime := strings.ToLower(part.MimeType)
		if strings.HasPrefix(mime, "text/") || strings.HasPrefix(mime, "multipart/") {
			if body := plainTextBody(part); body != "" {
				return body
			}
		}
	}
	return ""
}
