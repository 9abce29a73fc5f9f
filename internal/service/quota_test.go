package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/inboxpilot/inboxpilot/internal/domain"
)

func newQuotaFixture(t *testing.T, now time.Time) (*quotaService, *fakeUsageRepo) {
	t.Helper()
	logger := testLogger()
	usageRepo := newFakeUsageRepo()

	usage := NewUsageService(usageRepo, logger).(*usageService)
	usage.now = func() time.Time { return now }

	quota := NewQuotaService(domain.DefaultCatalog(), usage, logger).(*quotaService)
	quota.now = func() time.Time { return now }
	return quota, usageRepo
}

func TestQuotaCheck(t *testing.T) {
	now := time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC)

	testCases := []struct {
		name       string
		status     string
		plan       string
		used       int
		wantDenied bool
	}{
		{"free under limit", "", "", 199, false},
		{"free at limit", "", "", 200, true},
		{"free over limit", "", "", 300, true},
		{"starter under limit", "active", "starter", 599, false},
		{"starter at limit", "active", "starter", 600, true},
		{"canceled falls back to free", "canceled", "business", 200, true},
		{"trial uses plan limit", "on_trial", "professional", 19999, false},
		{"business unlimited", "active", "business", 5_000_000, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			quota, usageRepo := newQuotaFixture(t, now)
			user := &domain.User{
				ID:                 uuid.New(),
				SubscriptionStatus: tc.status,
				SubscriptionPlan:   tc.plan,
			}
			usageRepo.seed(user.ID, now, tc.used)

			err := quota.Check(context.Background(), user)
			if tc.wantDenied {
				if domain.ErrorCode(err) != domain.EQUOTA {
					t.Fatalf("expected quota denial, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("expected allowed, got %v", err)
			}
		})
	}
}

func TestQuotaCheckIgnoresOtherMonths(t *testing.T) {
	now := time.Date(2025, time.June, 1, 0, 30, 0, 0, time.UTC)
	quota, usageRepo := newQuotaFixture(t, now)
	user := &domain.User{ID: uuid.New()}

	// Heavy usage in May must not count against June.
	usageRepo.seed(user.ID, time.Date(2025, time.May, 31, 0, 0, 0, 0, time.UTC), 500)
	usageRepo.seed(user.ID, now, 10)

	if err := quota.Check(context.Background(), user); err != nil {
		t.Fatalf("expected allowed, got %v", err)
	}
}

func TestQuotaCheckStoreFailurePropagates(t *testing.T) {
	now := time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC)
	quota, usageRepo := newQuotaFixture(t, now)
	usageRepo.err = errors.New("connection refused")

	err := quota.Check(context.Background(), &domain.User{ID: uuid.New()})
	if domain.ErrorCode(err) != domain.EINTERNAL {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestQuotaStatus(t *testing.T) {
	now := time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC)

	testCases := []struct {
		name          string
		status        string
		plan          string
		used          int
		wantLimit     int
		wantRemaining int
		wantAllowed   bool
	}{
		{"free partway", "", "", 50, 200, 150, true},
		{"free exhausted", "", "", 200, 200, 0, false},
		{"free over never negative", "", "", 250, 200, 0, false},
		{"business unlimited", "active", "business", 99999, domain.UnlimitedQuota, domain.UnlimitedQuota, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			quota, usageRepo := newQuotaFixture(t, now)
			user := &domain.User{
				ID:                 uuid.New(),
				SubscriptionStatus: tc.status,
				SubscriptionPlan:   tc.plan,
			}
			usageRepo.seed(user.ID, now, tc.used)

			status, err := quota.Status(context.Background(), user)
			if err != nil {
				t.Fatal(err)
			}
			if status.MonthlyLimit != tc.wantLimit {
				t.Errorf("limit = %d, want %d", status.MonthlyLimit, tc.wantLimit)
			}
			if status.Remaining != tc.wantRemaining {
				t.Errorf("remaining = %d, want %d", status.Remaining, tc.wantRemaining)
			}
			if status.Allowed != tc.wantAllowed {
				t.Errorf("allowed = %v, want %v", status.Allowed, tc.wantAllowed)
			}
			if status.Used != tc.used {
				t.Errorf("used = %d, want %d", status.Used, tc.used)
			}
		})
	}
}
