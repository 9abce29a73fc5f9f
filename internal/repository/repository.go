// Package repository provides Postgres data access for the InboxPilot
// server. Each area of the schema gets its own interface so services can be
// tested against in-memory fakes, with hand-written SQL behind each method.
package repository

import "database/sql"

// Repository bundles the per-table repositories behind one constructor so
// main wires a single value.
type Repository struct {
	Users         UserRepository
	Sessions      SessionRepository
	Usage         UsageRepository
	Emails        EmailRepository
	BillingEvents BillingEventRepository
}

// New creates a Repository over an open database handle.
func New(db *sql.DB) *Repository {
	return &Repository{
		Users:         NewUserRepo(db),
		Sessions:      NewSessionRepo(db),
		Usage:         NewUsageRepo(db),
		Emails:        NewEmailRepo(db),
		BillingEvents: NewBillingEventRepo(db),
	}
}
