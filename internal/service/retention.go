// Package service contains the business logic layer.
//
// This file implements the retention engine. Each user's emails live through
// a two-stage lifecycle: active until their plan's retention window passes,
// archived for a fixed 30-day grace period, then permanently deleted.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/inboxpilot/inboxpilot/internal/domain"
	"github.com/inboxpilot/inboxpilot/internal/metrics"
	"github.com/inboxpilot/inboxpilot/internal/repository"
)

// RetentionService drives the email retention lifecycle.
type RetentionService interface {
	// Sweep runs one archive+purge pass for a single user. Archive runs
	// before purge; a record archived in this pass is never purged in the
	// same pass.
	Sweep(ctx context.Context, user *domain.User) (*domain.SweepResult, error)
	// SweepAll runs the scheduled sweep over every user, then ages out
	// old usage ledger rows. Per-user failures are collected into the
	// summary and never abort the batch.
	SweepAll(ctx context.Context) (*domain.SweepSummary, error)
	// Status reports a user's retention position without changing
	// anything.
	Status(ctx context.Context, user *domain.User) (*domain.RetentionStatus, error)
}

type retentionService struct {
	catalog domain.Catalog
	users   repository.UserRepository
	emails  repository.EmailRepository
	usage   UsageService
	logger  *slog.Logger
	now     func() time.Time
}

// NewRetentionService creates a new RetentionService.
func NewRetentionService(
	catalog domain.Catalog,
	users repository.UserRepository,
	emails repository.EmailRepository,
	usage UsageService,
	logger *slog.Logger,
) RetentionService {
	return &retentionService{
		catalog: catalog,
		users:   users,
		emails:  emails,
		usage:   usage,
		logger:  logger,
		now:     time.Now,
	}
}

// archiveCutoff is the received_at horizon for a tier: anything older leaves
// the active set.
func (s *retentionService) archiveCutoff(tier domain.PlanTier, now time.Time) time.Time {
	return now.AddDate(0, 0, -s.catalog.RetentionDays(tier))
}

func (s *retentionService) Sweep(ctx context.Context, user *domain.User) (*domain.SweepResult, error) {
	const op = "RetentionService.Sweep"

	now := s.now().UTC()
	tier := user.Plan()

	archived, err := s.emails.ArchiveOlderThan(ctx, user.ID, s.archiveCutoff(tier, now), now)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to archive emails")
	}

	purged, err := s.emails.PurgeArchivedBefore(ctx, user.ID, now.AddDate(0, 0, -domain.PurgeGraceDays))
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to purge archived emails")
	}

	metrics.EmailsArchived.Add(float64(archived))
	metrics.EmailsPurged.Add(float64(purged))

	if archived > 0 || purged > 0 {
		s.logger.Info("Retention sweep completed",
			"user_id", user.ID,
			"plan", tier,
			"archived", archived,
			"purged", purged,
		)
	}
	return &domain.SweepResult{ArchivedCount: archived, PurgedCount: purged}, nil
}

func (s *retentionService) SweepAll(ctx context.Context) (*domain.SweepSummary, error) {
	const op = "RetentionService.SweepAll"

	start := s.now()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list users")
	}

	summary := &domain.SweepSummary{Timestamp: start.UTC()}
	for i := range users {
		user := &users[i]
		result, err := s.Sweep(ctx, user)
		if err != nil {
			metrics.SweepErrors.Inc()
			s.logger.Error("Sweep failed for user", "user_id", user.ID, "error", err)
			summary.Errors = append(summary.Errors, fmt.Sprintf("user %s: %v", user.ID, err))
			continue
		}
		summary.Processed++
		summary.TotalArchived += result.ArchivedCount
		summary.TotalPurged += result.PurgedCount

		usageCutoff := start.AddDate(0, 0, -domain.UsageRetentionDays)
		if _, err := s.usage.PurgeOlderThan(ctx, user.ID, usageCutoff); err != nil {
			metrics.SweepErrors.Inc()
			summary.Errors = append(summary.Errors, fmt.Sprintf("user %s usage: %v", user.ID, err))
		}
	}

	s.logger.Info("Scheduled sweep completed",
		"processed", summary.Processed,
		"archived", summary.TotalArchived,
		"purged", summary.TotalPurged,
		"errors", len(summary.Errors),
	)
	return summary, nil
}

func (s *retentionService) Status(ctx context.Context, user *domain.User) (*domain.RetentionStatus, error) {
	const op = "RetentionService.Status"

	now := s.now().UTC()
	tier := user.Plan()
	cutoff := s.archiveCutoff(tier, now)

	counts, err := s.emails.Counts(ctx, user.ID, cutoff)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to count emails")
	}

	return &domain.RetentionStatus{
		Plan:                     tier,
		RetentionDays:            s.catalog.RetentionDays(tier),
		TotalEmails:              counts.Total,
		ActiveEmails:             counts.Active,
		ArchivedEmails:           counts.Archived,
		EmailsEligibleForArchive: counts.EligibleForArchive,
		Cutoff:                   cutoff,
	}, nil
}
