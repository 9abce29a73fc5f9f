package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Lemon Squeezy webhook event names this service reacts to.
const (
	LemonEventSubscriptionCreated   = "subscription_created"
	LemonEventSubscriptionUpdated   = "subscription_updated"
	LemonEventSubscriptionCancelled = "subscription_cancelled"
	LemonEventSubscriptionResumed   = "subscription_resumed"
	LemonEventSubscriptionExpired   = "subscription_expired"
)

// LemonEvent is a parsed Lemon Squeezy subscription webhook.
type LemonEvent struct {
	Name           string // meta.event_name
	UserID         string // meta.custom_data.user_id, set at checkout
	SubscriptionID string // data.id
	CustomerID     string
	Status         string // active, on_trial, cancelled, expired, past_due
	VariantName    string // plan name as configured in the store
}

// IsSubscriptionEvent reports whether this service handles the event.
func (e *LemonEvent) IsSubscriptionEvent() bool {
	switch e.Name {
	case LemonEventSubscriptionCreated,
		LemonEventSubscriptionUpdated,
		LemonEventSubscriptionCancelled,
		LemonEventSubscriptionResumed,
		LemonEventSubscriptionExpired:
		return true
	}
	return false
}

// LemonService verifies and parses Lemon Squeezy webhooks. Lemon Squeezy has
// no server-side Go SDK; webhook verification is plain HMAC over the raw
// body, so the whole integration is this parser.
type LemonService interface {
	// VerifyAndParse checks the X-Signature header against the raw
	// payload and parses the event.
	VerifyAndParse(payload []byte, signature string) (*LemonEvent, error)
}

type lemonService struct {
	signingSecret string
}

// NewLemonService creates a new Lemon Squeezy webhook service.
func NewLemonService(signingSecret string) LemonService {
	return &lemonService{signingSecret: signingSecret}
}

// lemonPayload mirrors the subset of the webhook body this service reads.
type lemonPayload struct {
	Meta struct {
		EventName  string `json:"event_name"`
		CustomData struct {
			UserID string `json:"user_id"`
		} `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Status      string `json:"status"`
			CustomerID  int64  `json:"customer_id"`
			VariantName string `json:"variant_name"`
			ProductName string `json:"product_name"`
		} `json:"attributes"`
	} `json:"data"`
}

func (s *lemonService) VerifyAndParse(payload []byte, signature string) (*LemonEvent, error) {
	if !s.verifySignature(payload, signature) {
		return nil, fmt.Errorf("lemon squeezy webhook signature verification failed")
	}

	var body lemonPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("parsing lemon squeezy webhook: %w", err)
	}

	event := &LemonEvent{
		Name:           body.Meta.EventName,
		UserID:         body.Meta.CustomData.UserID,
		SubscriptionID: body.Data.ID,
		Status:         body.Data.Attributes.Status,
		VariantName:    body.Data.Attributes.VariantName,
	}
	if body.Data.Attributes.CustomerID != 0 {
		event.CustomerID = fmt.Sprintf("%d", body.Data.Attributes.CustomerID)
	}
	if event.VariantName == "" {
		event.VariantName = body.Data.Attributes.ProductName
	}
	return event, nil
}

func (s *lemonService) verifySignature(payload []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" || s.signingSecret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(s.signingSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
