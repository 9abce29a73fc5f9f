// Package domain contains core business types and interfaces.
//
// This file defines the stored email summary record and the retention
// lifecycle types. A record is Active until the owner's retention window
// passes, Archived for a fixed 30-day grace period after that, then deleted
// for good.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Email priorities assigned by the summarizer.
const (
	PriorityHigh   = "high"
	PriorityNormal = "normal"
	PriorityLow    = "low"
)

// PurgeGraceDays is how long an archived record survives before permanent
// deletion. Fixed, independent of plan tier.
const PurgeGraceDays = 30

// UsageRetentionDays is how long daily usage rows are kept before the
// scheduled sweep ages them out. Independent of email retention.
const UsageRetentionDays = 180

// EmailRecord is one AI-processed email summary. Records are keyed on
// (UserID, GmailMessageID): re-ingesting a message the mailbox re-surfaces
// updates in place and never re-counts against quota.
type EmailRecord struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	GmailMessageID string
	Sender         string
	Subject        string
	Snippet        string
	Summary        string
	Priority       string
	Label          string
	SuggestedReply string
	GmailLabelIDs  []string
	IsRead         bool
	ReceivedAt     time.Time // original message time, immutable once set
	Archived       bool
	ArchivedAt     *time.Time // non-nil iff Archived
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SweepResult reports what one archive+purge pass did for one user.
type SweepResult struct {
	ArchivedCount int64 `json:"archived"`
	PurgedCount   int64 `json:"deleted"`
}

// SweepSummary reports a scheduled sweep across all users. Per-user failures
// are collected, never fatal to the batch.
type SweepSummary struct {
	Timestamp     time.Time `json:"timestamp"`
	Processed     int       `json:"processed"`
	TotalArchived int64     `json:"totalArchived"`
	TotalPurged   int64     `json:"totalDeleted"`
	Errors        []string  `json:"errors,omitempty"`
}

// RetentionStatus is the reporting view of one user's retention state.
type RetentionStatus struct {
	Plan                     PlanTier  `json:"plan"`
	RetentionDays            int       `json:"retentionDays"`
	TotalEmails              int64     `json:"totalEmails"`
	ActiveEmails             int64     `json:"activeEmails"`
	ArchivedEmails           int64     `json:"archivedEmails"`
	EmailsEligibleForArchive int64     `json:"emailsToArchive"`
	Cutoff                   time.Time `json:"cutoffDate"`
}
