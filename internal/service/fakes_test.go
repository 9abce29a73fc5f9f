package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inboxpilot/inboxpilot/internal/domain"
	"github.com/inboxpilot/inboxpilot/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =============================================================================
// In-memory repository fakes
// =============================================================================

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
	err   error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	u := *user
	f.users[user.ID] = &u
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.StripeCustomerID == customerID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) List(ctx context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var users []domain.User
	for _, u := range f.users {
		users = append(users, *u)
	}
	return users, nil
}

func (f *fakeUserRepo) UpdateSubscription(ctx context.Context, id uuid.UUID, status, plan string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.SubscriptionStatus = status
	u.SubscriptionPlan = plan
	return nil
}

func (f *fakeUserRepo) SetStripeRefs(ctx context.Context, id uuid.UUID, customerID, subscriptionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.StripeCustomerID = customerID
	u.StripeSubscription = subscriptionID
	return nil
}

func (f *fakeUserRepo) SetLemonRefs(ctx context.Context, id uuid.UUID, customerID, subscriptionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LemonCustomerID = customerID
	u.LemonSubscriptionID = subscriptionID
	return nil
}

func (f *fakeUserRepo) SetGoogleRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.GoogleRefreshToken = token
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*domain.Session)}
}

func (f *fakeSessionRepo) Create(ctx context.Context, session *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := *session
	f.sessions[session.TokenHash] = &s
	return nil
}

func (f *fakeSessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, tokenHash)
	return nil
}

func (f *fakeSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for hash, s := range f.sessions {
		if s.IsExpired() {
			delete(f.sessions, hash)
			n++
		}
	}
	return n, nil
}

type usageKey struct {
	userID uuid.UUID
	day    time.Time
}

type fakeUsageRepo struct {
	mu      sync.Mutex
	rows    map[usageKey]int
	err     error
	addErr  error
	purgErr error
}

func newFakeUsageRepo() *fakeUsageRepo {
	return &fakeUsageRepo{rows: make(map[usageKey]int)}
}

func (f *fakeUsageRepo) seed(userID uuid.UUID, day time.Time, prompts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[usageKey{userID, domain.DayOf(day)}] = prompts
}

func (f *fakeUsageRepo) AddPrompts(ctx context.Context, userID uuid.UUID, day time.Time, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.rows[usageKey{userID, domain.DayOf(day)}] += count
	return nil
}

func (f *fakeUsageRepo) MonthlyPrompts(ctx context.Context, userID uuid.UUID, ref time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	start, end := domain.MonthBounds(ref)
	total := 0
	for k, prompts := range f.rows {
		if k.userID == userID && !k.day.Before(start) && !k.day.After(end) {
			total += prompts
		}
	}
	return total, nil
}

func (f *fakeUsageRepo) History(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.UsageDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	from, to = domain.DayOf(from), domain.DayOf(to)
	var history []domain.UsageDay
	for k, prompts := range f.rows {
		if k.userID == userID && !k.day.Before(from) && !k.day.After(to) {
			history = append(history, domain.UsageDay{UserID: userID, Day: k.day, Prompts: prompts})
		}
	}
	return history, nil
}

func (f *fakeUsageRepo) PurgeOlderThan(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.purgErr != nil {
		return 0, f.purgErr
	}
	cutoff = domain.DayOf(cutoff)
	var n int64
	for k := range f.rows {
		if k.userID == userID && k.day.Before(cutoff) {
			delete(f.rows, k)
			n++
		}
	}
	return n, nil
}

type fakeEmailRepo struct {
	mu         sync.Mutex
	records    map[uuid.UUID]*domain.EmailRecord
	upsertErr  error
	archiveErr error
	purgeErr   error
}

func newFakeEmailRepo() *fakeEmailRepo {
	return &fakeEmailRepo{records: make(map[uuid.UUID]*domain.EmailRecord)}
}

func (f *fakeEmailRepo) seed(rec domain.EmailRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	f.records[rec.ID] = &rec
}

func (f *fakeEmailRepo) Upsert(ctx context.Context, rec *domain.EmailRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, existing := range f.records {
		if existing.UserID == rec.UserID && existing.GmailMessageID == rec.GmailMessageID {
			existing.Summary = rec.Summary
			existing.Priority = rec.Priority
			existing.Label = rec.Label
			existing.SuggestedReply = rec.SuggestedReply
			existing.GmailLabelIDs = rec.GmailLabelIDs
			return nil
		}
	}
	cp := *rec
	f.records[rec.ID] = &cp
	return nil
}

func (f *fakeEmailRepo) ExistingMessageIDs(ctx context.Context, userID uuid.UUID, messageIDs []string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing := make(map[string]bool)
	for _, rec := range f.records {
		if rec.UserID != userID {
			continue
		}
		for _, id := range messageIDs {
			if rec.GmailMessageID == id {
				existing[id] = true
			}
		}
	}
	return existing, nil
}

func (f *fakeEmailRepo) List(ctx context.Context, params repository.ListEmailsParams) ([]domain.EmailRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.EmailRecord
	for _, rec := range f.records {
		if rec.UserID != params.UserID {
			continue
		}
		if params.Archived != nil && rec.Archived != *params.Archived {
			continue
		}
		if params.Priority != "" && rec.Priority != params.Priority {
			continue
		}
		if params.Label != "" && rec.Label != params.Label {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (f *fakeEmailRepo) ListAll(ctx context.Context, userID uuid.UUID) ([]domain.EmailRecord, error) {
	return f.List(ctx, repository.ListEmailsParams{UserID: userID})
}

func (f *fakeEmailRepo) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok || rec.UserID != userID {
		return repository.ErrNotFound
	}
	rec.IsRead = true
	return nil
}

func (f *fakeEmailRepo) ArchiveOlderThan(ctx context.Context, userID uuid.UUID, cutoff, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.archiveErr != nil {
		return 0, f.archiveErr
	}
	var n int64
	for _, rec := range f.records {
		if rec.UserID == userID && !rec.Archived && rec.ReceivedAt.Before(cutoff) {
			rec.Archived = true
			at := now
			rec.ArchivedAt = &at
			n++
		}
	}
	return n, nil
}

func (f *fakeEmailRepo) PurgeArchivedBefore(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.purgeErr != nil {
		return 0, f.purgeErr
	}
	var n int64
	for id, rec := range f.records {
		if rec.UserID == userID && rec.Archived && rec.ArchivedAt != nil && rec.ArchivedAt.Before(cutoff) {
			delete(f.records, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeEmailRepo) Counts(ctx context.Context, userID uuid.UUID, archiveCutoff time.Time) (repository.EmailCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var c repository.EmailCounts
	for _, rec := range f.records {
		if rec.UserID != userID {
			continue
		}
		c.Total++
		if rec.Archived {
			c.Archived++
		} else {
			c.Active++
			if rec.ReceivedAt.Before(archiveCutoff) {
				c.EligibleForArchive++
			}
		}
	}
	return c, nil
}
