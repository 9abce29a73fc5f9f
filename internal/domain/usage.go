// Package domain contains core business types and interfaces.
//
// This file defines the usage ledger entry: one row per (user, calendar
// day) counting AI-processed emails. The ledger is the basis for quota
// enforcement and analytics; it says nothing about which emails are stored
// or for how long.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// UsageDay is one ledger row. Prompts only increases, except when the
// scheduled sweep ages the whole row out.
type UsageDay struct {
	UserID  uuid.UUID
	Day     time.Time // truncated to midnight UTC
	Prompts int
}

// DayOf truncates t to its calendar day in UTC. Every ledger write and
// cutoff computation goes through this so no two call sites disagree about
// where a day starts.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthBounds returns the inclusive start and end days of the calendar
// month containing ref, in UTC. A ledger row belongs to the month when its
// day falls within [start, end].
func MonthBounds(ref time.Time) (start, end time.Time) {
	ref = ref.UTC()
	start = time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, -1)
	return start, end
}
