// Package domain contains core business types and interfaces.
//
// This file defines the subscription plan catalog: per-tier monthly email
// quotas, retention windows, and feature sets, plus the resolver that maps
// provider-reported subscription fields onto a canonical tier.
package domain

import (
	"fmt"
	"strings"
)

// PlanTier identifies one subscription plan.
type PlanTier string

const (
	PlanFree         PlanTier = "Free"
	PlanStarter      PlanTier = "Starter"
	PlanProfessional PlanTier = "Professional"
	PlanBusiness     PlanTier = "Business"
)

// Subscription statuses that grant access to a paid plan. Any other
// provider-reported status (canceled, past_due, unpaid, ...) resolves to Free.
const (
	SubscriptionStatusActive  = "active"
	SubscriptionStatusOnTrial = "on_trial"
)

// UnlimitedQuota is the sentinel for tiers with no monthly email cap.
const UnlimitedQuota = -1

// FeatureAll is the sentinel feature that grants every feature.
const FeatureAll = "all"

// PlanLimits holds the limits and entitlements for one tier.
type PlanLimits struct {
	EmailsPerMonth int // UnlimitedQuota means no cap
	RetentionDays  int
	Features       []string
}

// Catalog is the immutable plan table. Construct once at startup (normally
// via DefaultCatalog) and pass it into the services that need it. It is a
// value type on purpose: nothing mutates it after construction.
type Catalog struct {
	limits map[PlanTier]PlanLimits
}

// NewCatalog builds a catalog from an explicit tier table. Tests use this to
// run against alternate limits.
func NewCatalog(limits map[PlanTier]PlanLimits) Catalog {
	m := make(map[PlanTier]PlanLimits, len(limits))
	for tier, l := range limits {
		m[tier] = l
	}
	return Catalog{limits: m}
}

// DefaultCatalog returns the production plan table.
func DefaultCatalog() Catalog {
	return NewCatalog(map[PlanTier]PlanLimits{
		PlanFree: {
			EmailsPerMonth: 200,
			RetentionDays:  7,
			Features:       []string{"basic_summary", "categorization"},
		},
		PlanStarter: {
			EmailsPerMonth: 600,
			RetentionDays:  30,
			Features: []string{
				"basic_summary",
				"categorization",
				"suggested_replies",
				"priority_detection",
			},
		},
		PlanProfessional: {
			EmailsPerMonth: 20000,
			RetentionDays:  90,
			Features: []string{
				"basic_summary",
				"categorization",
				"suggested_replies",
				"priority_detection",
				"custom_labels",
				"bulk_actions",
				"api_access",
			},
		},
		PlanBusiness: {
			EmailsPerMonth: UnlimitedQuota,
			RetentionDays:  365,
			Features:       []string{FeatureAll},
		},
	})
}

// Limits returns the limits for a tier, falling back to Free for a tier the
// catalog does not know.
func (c Catalog) Limits(tier PlanTier) PlanLimits {
	if l, ok := c.limits[tier]; ok {
		return l
	}
	return c.limits[PlanFree]
}

// Quota returns the monthly email quota for a tier (UnlimitedQuota for none).
func (c Catalog) Quota(tier PlanTier) int {
	return c.Limits(tier).EmailsPerMonth
}

// RetentionDays returns how long a tier keeps emails active before archiving.
func (c Catalog) RetentionDays(tier PlanTier) int {
	return c.Limits(tier).RetentionDays
}

// HasFeature reports whether a tier includes the given feature. The "all"
// sentinel grants everything.
func (c Catalog) HasFeature(tier PlanTier, feature string) bool {
	for _, f := range c.Limits(tier).Features {
		if f == FeatureAll || f == feature {
			return true
		}
	}
	return false
}

// QuotaDecision is the outcome of a quota check.
type QuotaDecision struct {
	Allowed bool
	Reason  string
}

// CheckQuota decides whether a user whose monthly total is already at
// monthlyTotal may process more email this month. The check is a pre-batch
// gate: it compares the total accumulated before a batch, not the total the
// batch would produce.
func (c Catalog) CheckQuota(monthlyTotal int, tier PlanTier) QuotaDecision {
	limit := c.Quota(tier)
	if limit == UnlimitedQuota {
		return QuotaDecision{Allowed: true}
	}
	if monthlyTotal >= limit {
		return QuotaDecision{
			Allowed: false,
			Reason:  fmt.Sprintf("Monthly limit reached (%d emails/month). Upgrade to process more.", limit),
		}
	}
	return QuotaDecision{Allowed: true}
}

// ResolvePlan maps the raw provider-reported subscription status and plan
// name onto a tier. It is pure and total: unknown input never fails, it
// resolves.
//
// Rules, in order:
//  1. A status outside {active, on_trial} is Free regardless of plan name.
//  2. A recognized plan name (case-insensitive; "pro" is accepted for
//     Professional) wins.
//  3. An active subscription with a missing or unrecognized plan name is
//     Starter. Subscriptions created before the plan name field existed
//     have no name stored.
//
// This function is the single source of truth for tier inference. Call
// sites must not reimplement it.
func ResolvePlan(rawStatus, rawPlanName string) PlanTier {
	if rawStatus != SubscriptionStatusActive && rawStatus != SubscriptionStatusOnTrial {
		return PlanFree
	}

	switch strings.ToLower(strings.TrimSpace(rawPlanName)) {
	case "starter":
		return PlanStarter
	case "professional", "pro":
		return PlanProfessional
	case "business":
		return PlanBusiness
	}

	return PlanStarter
}
