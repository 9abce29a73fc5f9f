// Package billing integrates the two subscription providers. Both normalize
// their webhook events into the same domain.SubscriptionUpdate shape; the
// rest of the system never branches on provider.
package billing

import (
	"fmt"

	"github.com/stripe/stripe-go/v79"
	billingportalsession "github.com/stripe/stripe-go/v79/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/subscription"
	"github.com/stripe/stripe-go/v79/webhook"
)

// StripeService defines the Stripe billing operations.
type StripeService interface {
	// CreateCustomer creates a new Stripe customer for the given email.
	CreateCustomer(email, name string) (string, error)

	// CreateCheckoutSession creates a Stripe Checkout session for
	// subscribing. The userID is carried as the client reference so the
	// completion webhook can attribute the purchase. Returns the checkout
	// URL to redirect the user to.
	CreateCheckoutSession(customerID, userID, priceID, successURL, cancelURL string) (string, error)

	// CreatePortalSession creates a Stripe Customer Portal session.
	// Returns the portal URL to redirect the user to.
	CreatePortalSession(customerID, returnURL string) (string, error)

	// GetSubscription retrieves a Stripe subscription by ID.
	GetSubscription(subscriptionID string) (*stripe.Subscription, error)

	// CancelSubscription sets a subscription to cancel at period end.
	CancelSubscription(subscriptionID string) error

	// VerifyWebhookSignature verifies the Stripe webhook signature and
	// returns the event.
	VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error)

	// PlanForPriceID returns the plan name for a Stripe price ID, or ""
	// for an unknown price.
	PlanForPriceID(priceID string) string

	// PriceIDFor returns the configured price ID for a plan and billing
	// interval ("monthly" or "yearly"), or "" when not configured.
	PriceIDFor(plan, interval string) string
}

// PriceConfig holds the Stripe price IDs for each paid plan.
type PriceConfig struct {
	StarterMonthlyPriceID      string
	StarterYearlyPriceID       string
	ProfessionalMonthlyPriceID string
	ProfessionalYearlyPriceID  string
	BusinessMonthlyPriceID     string
	BusinessYearlyPriceID      string
}

type stripeService struct {
	webhookSecret string
	prices        PriceConfig
	priceToPlan   map[string]string
}

// NewStripeService creates a new Stripe billing service.
//
// The secretKey authenticates Stripe API calls; the webhookSecret verifies
// incoming webhook signatures.
func NewStripeService(secretKey, webhookSecret string, prices PriceConfig) StripeService {
	stripe.Key = secretKey

	priceToPlan := make(map[string]string)
	for priceID, plan := range map[string]string{
		prices.StarterMonthlyPriceID:      "starter",
		prices.StarterYearlyPriceID:       "starter",
		prices.ProfessionalMonthlyPriceID: "professional",
		prices.ProfessionalYearlyPriceID:  "professional",
		prices.BusinessMonthlyPriceID:     "business",
		prices.BusinessYearlyPriceID:      "business",
	} {
		if priceID != "" {
			priceToPlan[priceID] = plan
		}
	}

	return &stripeService{
		webhookSecret: webhookSecret,
		prices:        prices,
		priceToPlan:   priceToPlan,
	}
}

func (s *stripeService) CreateCustomer(email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	c, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create customer: %w", err)
	}
	return c.ID, nil
}

func (s *stripeService) CreateCheckoutSession(customerID, userID, priceID, successURL, cancelURL string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Customer:          stripe.String(customerID),
		ClientReferenceID: stripe.String(userID),
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create checkout session: %w", err)
	}
	return sess.URL, nil
}

func (s *stripeService) CreatePortalSession(customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	sess, err := billingportalsession.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create portal session: %w", err)
	}
	return sess.URL, nil
}

func (s *stripeService) GetSubscription(subscriptionID string) (*stripe.Subscription, error) {
	sub, err := subscription.Get(subscriptionID, nil)
	if err != nil {
		return nil, fmt.Errorf("stripe get subscription: %w", err)
	}
	return sub, nil
}

func (s *stripeService) CancelSubscription(subscriptionID string) error {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	_, err := subscription.Update(subscriptionID, params)
	if err != nil {
		return fmt.Errorf("stripe cancel subscription: %w", err)
	}
	return nil
}

func (s *stripeService) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("stripe webhook signature verification failed: %w", err)
	}
	return event, nil
}

func (s *stripeService) PlanForPriceID(priceID string) string {
	return s.priceToPlan[priceID]
}

func (s *stripeService) PriceIDFor(plan, interval string) string {
	yearly := interval == "yearly"
	switch plan {
	case "starter":
		if yearly {
			return s.prices.StarterYearlyPriceID
		}
		return s.prices.StarterMonthlyPriceID
	case "professional":
		if yearly {
			return s.prices.ProfessionalYearlyPriceID
		}
		return s.prices.ProfessionalMonthlyPriceID
	case "business":
		if yearly {
			return s.prices.BusinessYearlyPriceID
		}
		return s.prices.BusinessMonthlyPriceID
	}
	return ""
}

// NormalizeStripeStatus maps a Stripe subscription status onto the stored
// status vocabulary. Trialing subscriptions count as trials; everything
// else is stored verbatim and resolves to Free unless it is "active".
func NormalizeStripeStatus(status stripe.SubscriptionStatus) string {
	if status == stripe.SubscriptionStatusTrialing {
		return "on_trial"
	}
	return string(status)
}
