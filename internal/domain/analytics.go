// Package domain contains core business types and interfaces.
//
// This file implements read-only usage analytics: rollups and derived
// statistics over ledger history. Everything here is pure arithmetic over
// a slice of UsageDay; empty history yields zero values, never errors.
package domain

import (
	"math"
	"time"
)

// WeeklyPattern splits a window of usage into weekday and weekend activity.
type WeeklyPattern struct {
	Weekdays       int     `json:"weekdays"`
	Weekends       int     `json:"weekends"`
	WeekdayAverage float64 `json:"weekdayAverage"`
	WeekendAverage float64 `json:"weekendAverage"`
}

// MonthlyRollup aggregates one calendar month of ledger history.
type MonthlyRollup struct {
	Month         string  `json:"month"` // "Jan 2006"
	Date          string  `json:"date"`  // "2006-01"
	Emails        int     `json:"emails"`
	Days          int     `json:"days"`
	AveragePerDay float64 `json:"averagePerDay"`
}

// UsageIntensity buckets days in a window by volume.
type UsageIntensity struct {
	Light    int `json:"light"`    // <= 5 per day
	Moderate int `json:"moderate"` // 6-20 per day
	Heavy    int `json:"heavy"`    // > 20 per day
}

// PeakUsage identifies the busiest day in a window.
type PeakUsage struct {
	Day    time.Time `json:"-"`
	Emails int       `json:"emails"`
}

// UsageTrend compares the two most recent monthly rollups.
type UsageTrend struct {
	IsIncreasing   bool    `json:"isIncreasing"`
	MonthOverMonth float64 `json:"monthOverMonth"` // percent delta
}

// TotalPrompts sums the prompt counts over a history slice.
func TotalPrompts(history []UsageDay) int {
	total := 0
	for _, d := range history {
		total += d.Prompts
	}
	return total
}

// DailyAverage returns the mean prompts per recorded day, rounded to one
// decimal place. Days with no ledger row do not drag the average down; only
// days the user was active are counted, matching the reporting surface.
func DailyAverage(history []UsageDay) float64 {
	if len(history) == 0 {
		return 0
	}
	avg := float64(TotalPrompts(history)) / float64(len(history))
	return math.Round(avg*10) / 10
}

// isWeekend reports whether a day falls on Saturday or Sunday.
func isWeekend(day time.Time) bool {
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Weekly computes the weekday/weekend split over a window of history.
func Weekly(history []UsageDay) WeeklyPattern {
	var p WeeklyPattern
	var weekdayDays, weekendDays int
	for _, d := range history {
		if isWeekend(d.Day) {
			p.Weekends += d.Prompts
			weekendDays++
		} else {
			p.Weekdays += d.Prompts
			weekdayDays++
		}
	}
	if weekdayDays > 0 {
		p.WeekdayAverage = float64(p.Weekdays) / float64(weekdayDays)
	}
	if weekendDays > 0 {
		p.WeekendAverage = float64(p.Weekends) / float64(weekendDays)
	}
	return p
}

// DayOfWeekTotals sums prompts per weekday, Sunday first.
func DayOfWeekTotals(history []UsageDay) [7]int {
	var totals [7]int
	for _, d := range history {
		totals[int(d.Day.Weekday())] += d.Prompts
	}
	return totals
}

// MonthlyBreakdown rolls history up into the trailing `months` calendar
// months ending at the month containing now, oldest first.
func MonthlyBreakdown(history []UsageDay, now time.Time, months int) []MonthlyRollup {
	// Anchor on the first day of the current month before stepping back.
	// Subtracting months from a late day-of-month overflows short months
	// (Mar 31 minus one month lands in March again).
	anchor, _ := MonthBounds(now)
	rollups := make([]MonthlyRollup, 0, months)
	for i := months - 1; i >= 0; i-- {
		start, end := MonthBounds(anchor.AddDate(0, -i, 0))
		var total, days int
		for _, d := range history {
			if !d.Day.Before(start) && !d.Day.After(end) {
				total += d.Prompts
				days++
			}
		}
		r := MonthlyRollup{
			Month:  start.Format("Jan 2006"),
			Date:   start.Format("2006-01"),
			Emails: total,
			Days:   days,
		}
		if days > 0 {
			r.AveragePerDay = float64(total) / float64(days)
		}
		rollups = append(rollups, r)
	}
	return rollups
}

// Intensity buckets each recorded day by volume.
func Intensity(history []UsageDay) UsageIntensity {
	var b UsageIntensity
	for _, d := range history {
		switch {
		case d.Prompts <= 5:
			b.Light++
		case d.Prompts <= 20:
			b.Moderate++
		default:
			b.Heavy++
		}
	}
	return b
}

// Peak returns the busiest day in the window. Empty history yields a zero
// PeakUsage.
func Peak(history []UsageDay) PeakUsage {
	var peak PeakUsage
	for _, d := range history {
		if d.Prompts > peak.Emails {
			peak = PeakUsage{Day: d.Day, Emails: d.Prompts}
		}
	}
	return peak
}

// Trend compares the two most recent rollups in a breakdown. Fewer than two
// months of data yields a flat trend. A zero previous month is treated as 1
// so the percentage stays finite.
func Trend(breakdown []MonthlyRollup) UsageTrend {
	if len(breakdown) < 2 {
		return UsageTrend{}
	}
	cur := breakdown[len(breakdown)-1].Emails
	prev := breakdown[len(breakdown)-2].Emails
	denom := prev
	if denom == 0 {
		denom = 1
	}
	return UsageTrend{
		IsIncreasing:   cur > prev,
		MonthOverMonth: float64(cur-prev) / float64(denom) * 100,
	}
}
