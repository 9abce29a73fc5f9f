package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayOfTruncatesToMidnightUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	in := time.Date(2024, 2, 15, 3, 30, 0, 0, loc) // 2024-02-14 22:30 UTC

	got := DayOf(in)

	assert.Equal(t, time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC), got)
}

func TestMonthBoundsInclusive(t *testing.T) {
	tests := []struct {
		name  string
		ref   time.Time
		start time.Time
		end   time.Time
	}{
		{
			// Leap February: the month runs through the 29th.
			name:  "leap february",
			ref:   time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC),
			start: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "thirty-one day month",
			ref:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "non-leap february",
			ref:   time.Date(2023, 2, 28, 23, 59, 59, 0, time.UTC),
			start: time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := MonthBounds(tt.ref)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestMonthBoundsExcludeNeighboringDays(t *testing.T) {
	start, end := MonthBounds(time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC))

	jan31 := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	feb1 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	feb29 := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	mar1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, jan31.Before(start))
	assert.False(t, feb1.Before(start) || feb1.After(end))
	assert.False(t, feb29.Before(start) || feb29.After(end))
	assert.True(t, mar1.After(end))
}
