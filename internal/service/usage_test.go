package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newUsageFixture(t *testing.T, now time.Time) (*usageService, *fakeUsageRepo) {
	t.Helper()
	repo := newFakeUsageRepo()
	svc := NewUsageService(repo, testLogger()).(*usageService)
	svc.now = func() time.Time { return now }
	return svc, repo
}

func TestRecordAccumulatesWithinDay(t *testing.T) {
	now := time.Date(2025, time.July, 4, 10, 0, 0, 0, time.UTC)
	svc, _ := newUsageFixture(t, now)
	userID := uuid.New()
	ctx := context.Background()

	// Two syncs on the same day land in one ledger row.
	if err := svc.Record(ctx, userID, now, 3); err != nil {
		t.Fatal(err)
	}
	if err := svc.Record(ctx, userID, now.Add(6*time.Hour), 4); err != nil {
		t.Fatal(err)
	}

	total, err := svc.MonthlyTotal(ctx, userID, now)
	if err != nil {
		t.Fatal(err)
	}
	if total != 7 {
		t.Errorf("monthly total = %d, want 7", total)
	}

	history, err := svc.History(ctx, userID, now.AddDate(0, 0, -1), now)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Prompts != 7 {
		t.Errorf("expected one row of 7, got %+v", history)
	}
}

func TestRecordZeroIsNoop(t *testing.T) {
	now := time.Date(2025, time.July, 4, 10, 0, 0, 0, time.UTC)
	svc, repo := newUsageFixture(t, now)
	userID := uuid.New()

	if err := svc.Record(context.Background(), userID, now, 0); err != nil {
		t.Fatal(err)
	}
	if len(repo.rows) != 0 {
		t.Error("zero-count record must not create a ledger row")
	}
}

func TestReport(t *testing.T) {
	now := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
	svc, repo := newUsageFixture(t, now)
	userID := uuid.New()

	// Current month activity inside the 30-day window.
	repo.seed(userID, time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC), 10) // Tuesday
	repo.seed(userID, time.Date(2025, time.June, 14, 0, 0, 0, 0, time.UTC), 30) // Saturday
	// Previous month, outside the window but inside the breakdown.
	repo.seed(userID, time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC), 25)
	// Too old for either window.
	repo.seed(userID, time.Date(2024, time.November, 1, 0, 0, 0, 0, time.UTC), 99)

	report, err := svc.Report(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}

	if report.MonthlyTotal != 40 {
		t.Errorf("monthly total = %d, want 40", report.MonthlyTotal)
	}
	if report.WindowTotal != 40 {
		t.Errorf("window total = %d, want 40", report.WindowTotal)
	}
	if report.DailyAverage != 20.0 {
		t.Errorf("daily average = %v, want 20.0", report.DailyAverage)
	}
	if report.Weekly.Weekdays != 10 || report.Weekly.Weekends != 30 {
		t.Errorf("weekly = %+v", report.Weekly)
	}
	if len(report.Monthly) != 6 {
		t.Fatalf("breakdown months = %d, want 6", len(report.Monthly))
	}
	last := report.Monthly[len(report.Monthly)-1]
	if last.Date != "2025-06" || last.Emails != 40 {
		t.Errorf("current month rollup = %+v", last)
	}
	may := report.Monthly[len(report.Monthly)-2]
	if may.Emails != 25 {
		t.Errorf("may rollup = %+v", may)
	}
	if report.Peak.Emails != 30 {
		t.Errorf("peak = %+v, want 30", report.Peak)
	}
	if report.Intensity.Moderate != 1 || report.Intensity.Heavy != 1 {
		t.Errorf("intensity = %+v", report.Intensity)
	}
	if report.Trend.IsIncreasing != true {
		t.Errorf("trend should be increasing: %+v", report.Trend)
	}
	if report.Trend.MonthOverMonth != 60.0 {
		t.Errorf("month over month = %v, want 60", report.Trend.MonthOverMonth)
	}
}

func TestReportOnLastDayOfMonth(t *testing.T) {
	now := time.Date(2024, time.March, 31, 23, 0, 0, 0, time.UTC)
	svc, repo := newUsageFixture(t, now)
	userID := uuid.New()

	repo.seed(userID, time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC), 50)
	repo.seed(userID, time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC), 80)
	// First month of the six-month window, must still be loaded.
	repo.seed(userID, time.Date(2023, time.October, 5, 0, 0, 0, 0, time.UTC), 9)

	report, err := svc.Report(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}

	if len(report.Monthly) != 6 {
		t.Fatalf("breakdown months = %d, want 6", len(report.Monthly))
	}
	want := []string{"2023-10", "2023-11", "2023-12", "2024-01", "2024-02", "2024-03"}
	for i, r := range report.Monthly {
		if r.Date != want[i] {
			t.Errorf("month %d = %s, want %s", i, r.Date, want[i])
		}
	}
	if report.Monthly[0].Emails != 9 {
		t.Errorf("october rollup = %+v, want 9 emails", report.Monthly[0])
	}
	// Trend must compare February against March, not March against itself.
	if !report.Trend.IsIncreasing || report.Trend.MonthOverMonth != 60.0 {
		t.Errorf("trend = %+v, want +60%% over February", report.Trend)
	}
}

func TestReportEmptyHistory(t *testing.T) {
	now := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
	svc, _ := newUsageFixture(t, now)

	report, err := svc.Report(context.Background(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	if report.MonthlyTotal != 0 || report.WindowTotal != 0 || report.DailyAverage != 0 {
		t.Errorf("empty report should be all zeros, got %+v", report)
	}
	if len(report.Monthly) != 6 {
		t.Errorf("breakdown must still cover 6 months, got %d", len(report.Monthly))
	}
	if report.Trend.IsIncreasing {
		t.Error("empty history cannot trend upward")
	}
}
