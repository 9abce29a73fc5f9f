// Package service contains the business logic layer.
//
// This file implements the usage ledger service: recording processed email
// counts, monthly totals for quota checks, and the analytics report.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/inboxpilot/inboxpilot/internal/domain"
	"github.com/inboxpilot/inboxpilot/internal/repository"
)

// Analytics report window sizes.
const (
	analyticsWindowDays = 30
	analyticsMonths     = 6
)

// UsageReport is the full analytics payload for one user.
type UsageReport struct {
	MonthlyTotal int                    `json:"currentMonthTotal"`
	WindowTotal  int                    `json:"last30DaysTotal"`
	DailyAverage float64                `json:"dailyAverage"`
	Weekly       domain.WeeklyPattern   `json:"weeklyPattern"`
	ByWeekday    [7]int                 `json:"byDayOfWeek"`
	Monthly      []domain.MonthlyRollup `json:"monthlyBreakdown"`
	Intensity    domain.UsageIntensity  `json:"intensity"`
	Peak         domain.PeakUsage       `json:"peakDay"`
	Trend        domain.UsageTrend      `json:"trend"`
}

// UsageService defines operations over the usage ledger.
type UsageService interface {
	// Record adds count processed emails to the user's ledger for the day
	// containing at.
	Record(ctx context.Context, userID uuid.UUID, at time.Time, count int) error
	// MonthlyTotal returns the user's total for the calendar month
	// containing ref.
	MonthlyTotal(ctx context.Context, userID uuid.UUID, ref time.Time) (int, error)
	History(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.UsageDay, error)
	// Report assembles the analytics payload: current-month total plus
	// rollups over the trailing 30 days and 6 months.
	Report(ctx context.Context, userID uuid.UUID) (*UsageReport, error)
	// PurgeOlderThan ages out ledger rows past the retention horizon.
	PurgeOlderThan(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error)
}

type usageService struct {
	usage  repository.UsageRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewUsageService creates a new UsageService.
func NewUsageService(usage repository.UsageRepository, logger *slog.Logger) UsageService {
	return &usageService{
		usage:  usage,
		logger: logger,
		now:    time.Now,
	}
}

func (s *usageService) Record(ctx context.Context, userID uuid.UUID, at time.Time, count int) error {
	const op = "UsageService.Record"

	if count <= 0 {
		return nil
	}
	if err := s.usage.AddPrompts(ctx, userID, at, count); err != nil {
		return domain.Internal(err, op, "Failed to record usage")
	}
	return nil
}

func (s *usageService) MonthlyTotal(ctx context.Context, userID uuid.UUID, ref time.Time) (int, error) {
	const op = "UsageService.MonthlyTotal"

	total, err := s.usage.MonthlyPrompts(ctx, userID, ref)
	if err != nil {
		return 0, domain.Internal(err, op, "Failed to sum monthly usage")
	}
	return total, nil
}

func (s *usageService) History(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.UsageDay, error) {
	const op = "UsageService.History"

	history, err := s.usage.History(ctx, userID, from, to)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to load usage history")
	}
	return history, nil
}

func (s *usageService) Report(ctx context.Context, userID uuid.UUID) (*UsageReport, error) {
	now := s.now().UTC()

	monthlyTotal, err := s.MonthlyTotal(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	// One history load covers both windows; the 6-month breakdown is the
	// wider of the two.
	monthAnchor, _ := domain.MonthBounds(now)
	earliest, _ := domain.MonthBounds(monthAnchor.AddDate(0, -(analyticsMonths - 1), 0))
	history, err := s.History(ctx, userID, earliest, now)
	if err != nil {
		return nil, err
	}

	windowStart := domain.DayOf(now.AddDate(0, 0, -analyticsWindowDays))
	var window []domain.UsageDay
	for _, d := range history {
		if !d.Day.Before(windowStart) {
			window = append(window, d)
		}
	}

	monthly := domain.MonthlyBreakdown(history, now, analyticsMonths)

	report := &UsageReport{
		MonthlyTotal: monthlyTotal,
		WindowTotal:  domain.TotalPrompts(window),
		DailyAverage: domain.DailyAverage(window),
		Weekly:       domain.Weekly(window),
		ByWeekday:    domain.DayOfWeekTotals(window),
		Monthly:      monthly,
		Intensity:    domain.Intensity(window),
		Peak:         domain.Peak(window),
		Trend:        domain.Trend(monthly),
	}

	return report, nil
}

func (s *usageService) PurgeOlderThan(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error) {
	const op = "UsageService.PurgeOlderThan"

	n, err := s.usage.PurgeOlderThan(ctx, userID, cutoff)
	if err != nil {
		return 0, domain.Internal(err, op, "Failed to purge usage rows")
	}
	if n > 0 {
		s.logger.Info("Purged usage rows", "user_id", userID, "count", n)
	}
	return n, nil
}
