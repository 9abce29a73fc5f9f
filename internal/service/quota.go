// Package service contains the business logic layer.
//
// This file implements quota enforcement: gating syncs on the user's
// month-to-date processed email total against their plan limit.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/inboxpilot/inboxpilot/internal/domain"
	"github.com/inboxpilot/inboxpilot/internal/metrics"
)

// QuotaStatus is the reporting view of quota state for one user.
type QuotaStatus struct {
	Plan         domain.PlanTier `json:"plan"`
	MonthlyLimit int             `json:"monthlyLimit"` // -1 means unlimited
	Used         int             `json:"used"`
	Remaining    int             `json:"remaining"` // -1 means unlimited
	Allowed      bool            `json:"allowed"`
}

// QuotaService gates work on the monthly quota.
type QuotaService interface {
	// Check decides whether the user may process another batch this
	// month. Returns nil if allowed, or a quota error carrying the
	// denial reason. The gate reads the total accumulated so far; a
	// batch that starts under the limit commits in full.
	Check(ctx context.Context, user *domain.User) error
	// Status reports the user's current quota position.
	Status(ctx context.Context, user *domain.User) (*QuotaStatus, error)
}

type quotaService struct {
	catalog domain.Catalog
	usage   UsageService
	logger  *slog.Logger
	now     func() time.Time
}

// NewQuotaService creates a new QuotaService.
func NewQuotaService(catalog domain.Catalog, usage UsageService, logger *slog.Logger) QuotaService {
	return &quotaService{
		catalog: catalog,
		usage:   usage,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *quotaService) Check(ctx context.Context, user *domain.User) error {
	const op = "QuotaService.Check"

	tier := user.Plan()
	if s.catalog.Quota(tier) == domain.UnlimitedQuota {
		return nil
	}

	total, err := s.usage.MonthlyTotal(ctx, user.ID, s.now())
	if err != nil {
		return err
	}

	decision := s.catalog.CheckQuota(total, tier)
	if !decision.Allowed {
		metrics.QuotaDenials.WithLabelValues(string(tier)).Inc()
		s.logger.Info("Quota denied",
			"user_id", user.ID,
			"plan", tier,
			"monthly_total", total,
		)
		return domain.QuotaDenied(op, decision.Reason)
	}
	return nil
}

func (s *quotaService) Status(ctx context.Context, user *domain.User) (*QuotaStatus, error) {
	tier := user.Plan()
	limit := s.catalog.Quota(tier)

	total, err := s.usage.MonthlyTotal(ctx, user.ID, s.now())
	if err != nil {
		return nil, err
	}

	status := &QuotaStatus{
		Plan:         tier,
		MonthlyLimit: limit,
		Used:         total,
		Remaining:    domain.UnlimitedQuota,
		Allowed:      true,
	}
	if limit != domain.UnlimitedQuota {
		status.Remaining = max(limit-total, 0)
		status.Allowed = total < limit
	}
	return status, nil
}
