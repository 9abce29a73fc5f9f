package handler

import (
	"log/slog"
	"net/http"

	"github.com/inboxpilot/inboxpilot/internal/billing"
	"github.com/inboxpilot/inboxpilot/internal/domain"
	"github.com/inboxpilot/inboxpilot/internal/middleware"
	"github.com/inboxpilot/inboxpilot/internal/repository"
)

// BillingHandler starts Stripe checkout and portal sessions.
type BillingHandler struct {
	stripeService billing.StripeService
	users         repository.UserRepository
	baseURL       string
	logger        *slog.Logger
}

// NewBillingHandler creates a new BillingHandler. baseURL is the public
// origin the checkout flow returns to.
func NewBillingHandler(stripeService billing.StripeService, users repository.UserRepository, baseURL string, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{
		stripeService: stripeService,
		users:         users,
		baseURL:       baseURL,
		logger:        logger,
	}
}

// HandleCheckout creates a Stripe Checkout session for a paid plan and
// returns its URL. Creates the Stripe customer on first use.
func (h *BillingHandler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	const op = "BillingHandler.HandleCheckout"

	user := middleware.GetUser(r.Context())

	var req struct {
		Plan     string `json:"plan"`
		Interval string `json:"interval"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Invalid request body"))
		return
	}
	if req.Interval == "" {
		req.Interval = "monthly"
	}
	if req.Interval != "monthly" && req.Interval != "yearly" {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "interval must be monthly or yearly"))
		return
	}

	priceID := h.stripeService.PriceIDFor(req.Plan, req.Interval)
	if priceID == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Unknown plan"))
		return
	}

	customerID := user.StripeCustomerID
	if customerID == "" {
		id, err := h.stripeService.CreateCustomer(user.Email, user.DisplayName())
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to create billing customer"))
			return
		}
		if err := h.users.SetStripeRefs(r.Context(), user.ID, id, user.StripeSubscription); err != nil {
			ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to store billing customer"))
			return
		}
		customerID = id
	}

	url, err := h.stripeService.CreateCheckoutSession(
		customerID,
		user.ID.String(),
		priceID,
		h.baseURL+"/billing/success",
		h.baseURL+"/billing/cancel",
	)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to create checkout session"))
		return
	}

	respondJSON(w, http.StatusOK, struct {
		URL string `json:"url"`
	}{url})
}

// HandlePortal creates a Stripe Customer Portal session so the user can
// manage an existing subscription.
func (h *BillingHandler) HandlePortal(w http.ResponseWriter, r *http.Request) {
	const op = "BillingHandler.HandlePortal"

	user := middleware.GetUser(r.Context())
	if user.StripeCustomerID == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "No billing account on file"))
		return
	}

	url, err := h.stripeService.CreatePortalSession(user.StripeCustomerID, h.baseURL+"/settings")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to create portal session"))
		return
	}

	respondJSON(w, http.StatusOK, struct {
		URL string `json:"url"`
	}{url})
}
