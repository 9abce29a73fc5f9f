package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"

	"github.com/inboxpilot/inboxpilot/internal/billing"
	"github.com/inboxpilot/inboxpilot/internal/domain"
	"github.com/inboxpilot/inboxpilot/internal/repository"
	"github.com/inboxpilot/inboxpilot/internal/service"
)

// maxWebhookBody caps webhook payload reads. Both providers send events far
// smaller than this.
const maxWebhookBody = 64 * 1024

// WebhookHandler receives billing events from Stripe and Lemon Squeezy and
// folds them into the user's subscription state.
type WebhookHandler struct {
	stripeService billing.StripeService
	lemonService  billing.LemonService
	userService   service.UserService
	users         repository.UserRepository
	events        repository.BillingEventRepository
	logger        *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(
	stripeService billing.StripeService,
	lemonService billing.LemonService,
	userService service.UserService,
	users repository.UserRepository,
	events repository.BillingEventRepository,
	logger *slog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		stripeService: stripeService,
		lemonService:  lemonService,
		userService:   userService,
		users:         users,
		events:        events,
		logger:        logger,
	}
}

// received acknowledges a webhook so the provider stops retrying.
func (h *WebhookHandler) received(w http.ResponseWriter) {
	respondJSON(w, http.StatusOK, struct {
		Received bool `json:"received"`
	}{true})
}

// HandleStripe processes Stripe webhook events. Signature failures return
// 400; events we cannot apply are logged and acknowledged, because Stripe
// retries on any non-2xx and a malformed event never becomes applyable.
func (h *WebhookHandler) HandleStripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("WebhookHandler.HandleStripe", "Failed to read request body"))
		return
	}

	event, err := h.stripeService.VerifyWebhookSignature(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("Stripe webhook signature verification failed", "error", err)
		ErrorResponse(w, r, h.logger, domain.Invalid("WebhookHandler.HandleStripe", "Invalid webhook signature"))
		return
	}

	if err := h.events.Insert(r.Context(), "stripe", string(event.Type), event.ID, payload); err != nil {
		h.logger.Error("Failed to record stripe billing event", "event_id", event.ID, "error", err)
	}

	switch event.Type {
	case "checkout.session.completed":
		h.handleCheckoutCompleted(r.Context(), event)
	case "customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted":
		h.handleSubscriptionChange(r.Context(), event)
	default:
		h.logger.Debug("Ignoring stripe event", "type", event.Type)
	}

	h.received(w)
}

func (h *WebhookHandler) handleCheckoutCompleted(ctx context.Context, event stripe.Event) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		h.logger.Error("Failed to parse checkout session", "event_id", event.ID, "error", err)
		return
	}

	userID, err := uuid.Parse(session.ClientReferenceID)
	if err != nil {
		h.logger.Error("Checkout session has no usable client reference", "event_id", event.ID)
		return
	}

	var customerID, subscriptionID string
	if session.Customer != nil {
		customerID = session.Customer.ID
	}
	if session.Subscription != nil {
		subscriptionID = session.Subscription.ID
	}
	if err := h.users.SetStripeRefs(ctx, userID, customerID, subscriptionID); err != nil {
		h.logger.Error("Failed to store stripe references", "user_id", userID, "error", err)
		return
	}

	if subscriptionID == "" {
		return
	}
	sub, err := h.stripeService.GetSubscription(subscriptionID)
	if err != nil {
		h.logger.Error("Failed to fetch subscription after checkout", "subscription_id", subscriptionID, "error", err)
		return
	}
	h.applyStripeSubscription(ctx, userID, sub)
}

func (h *WebhookHandler) handleSubscriptionChange(ctx context.Context, event stripe.Event) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error("Failed to parse subscription event", "event_id", event.ID, "error", err)
		return
	}
	if sub.Customer == nil {
		h.logger.Error("Subscription event without customer", "event_id", event.ID)
		return
	}

	user, err := h.users.GetByStripeCustomerID(ctx, sub.Customer.ID)
	if err != nil {
		h.logger.Warn("No account for stripe customer", "customer_id", sub.Customer.ID, "error", err)
		return
	}
	h.applyStripeSubscription(ctx, user.ID, &sub)
}

func (h *WebhookHandler) applyStripeSubscription(ctx context.Context, userID uuid.UUID, sub *stripe.Subscription) {
	var plan string
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		plan = h.stripeService.PlanForPriceID(sub.Items.Data[0].Price.ID)
	}

	update := domain.SubscriptionUpdate{
		Status:   billing.NormalizeStripeStatus(sub.Status),
		PlanName: plan,
	}
	if err := h.userService.ApplySubscription(ctx, userID, update); err != nil {
		h.logger.Error("Failed to apply stripe subscription update", "user_id", userID, "error", err)
	}
}

// HandleLemonSqueezy processes Lemon Squeezy webhook events, verified with
// the shared signing secret via the X-Signature header.
func (h *WebhookHandler) HandleLemonSqueezy(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("WebhookHandler.HandleLemonSqueezy", "Failed to read request body"))
		return
	}

	event, err := h.lemonService.VerifyAndParse(payload, r.Header.Get("X-Signature"))
	if err != nil {
		h.logger.Warn("Lemon Squeezy webhook verification failed", "error", err)
		ErrorResponse(w, r, h.logger, domain.Invalid("WebhookHandler.HandleLemonSqueezy", "Invalid webhook signature"))
		return
	}

	if err := h.events.Insert(r.Context(), "lemonsqueezy", event.Name, event.SubscriptionID, payload); err != nil {
		h.logger.Error("Failed to record lemonsqueezy billing event", "event", event.Name, "error", err)
	}

	if !event.IsSubscriptionEvent() {
		h.received(w)
		return
	}

	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		h.logger.Error("Lemon Squeezy event has no usable user id", "event", event.Name)
		h.received(w)
		return
	}

	if err := h.users.SetLemonRefs(r.Context(), userID, event.CustomerID, event.SubscriptionID); err != nil {
		h.logger.Error("Failed to store lemonsqueezy references", "user_id", userID, "error", err)
	}

	update := domain.SubscriptionUpdate{
		Status:   event.Status,
		PlanName: event.VariantName,
	}
	if err := h.userService.ApplySubscription(r.Context(), userID, update); err != nil {
		h.logger.Error("Failed to apply lemonsqueezy subscription update", "user_id", userID, "error", err)
	}

	h.received(w)
}
