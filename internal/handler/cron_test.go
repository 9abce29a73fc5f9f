package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/inboxpilot/inboxpilot/internal/domain"
)

type stubRetention struct {
	sweepAllCalls int
	summary       *domain.SweepSummary
}

func (s *stubRetention) Sweep(ctx context.Context, user *domain.User) (*domain.SweepResult, error) {
	return &domain.SweepResult{}, nil
}

func (s *stubRetention) SweepAll(ctx context.Context) (*domain.SweepSummary, error) {
	s.sweepAllCalls++
	return s.summary, nil
}

func (s *stubRetention) Status(ctx context.Context, user *domain.User) (*domain.RetentionStatus, error) {
	return &domain.RetentionStatus{}, nil
}

type stubUserService struct {
	expiredDeleted int64
}

func (s *stubUserService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	return nil, nil
}

func (s *stubUserService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	return nil, nil
}

func (s *stubUserService) Logout(ctx context.Context, token string) error { return nil }

func (s *stubUserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return nil, nil
}

func (s *stubUserService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	return nil, nil
}

func (s *stubUserService) ConnectMailbox(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	return nil
}

func (s *stubUserService) ApplySubscription(ctx context.Context, userID uuid.UUID, update domain.SubscriptionUpdate) error {
	return nil
}

func (s *stubUserService) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	return s.expiredDeleted, nil
}

func TestCronSweepAllRequiresBearerSecret(t *testing.T) {
	retention := &stubRetention{summary: &domain.SweepSummary{Timestamp: time.Now()}}
	h := NewCronHandler(retention, &stubUserService{}, "topsecret", testLogger())

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic topsecret", http.StatusUnauthorized},
		{"wrong secret", "Bearer nope", http.StatusUnauthorized},
		{"correct secret", "Bearer topsecret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/cron/cleanup", nil)
			if tt.authHeader != "" {
				r.Header.Set("Authorization", tt.authHeader)
			}

			h.HandleSweepAll(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}

	if retention.sweepAllCalls != 1 {
		t.Errorf("SweepAll calls = %d, want 1", retention.sweepAllCalls)
	}
}

func TestCronRejectsWhenSecretUnset(t *testing.T) {
	h := NewCronHandler(&stubRetention{}, &stubUserService{}, "", testLogger())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/cron/cleanup", nil)
	r.Header.Set("Authorization", "Bearer ")

	h.HandleSweepAll(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestCronSessionCleanup(t *testing.T) {
	h := NewCronHandler(&stubRetention{}, &stubUserService{expiredDeleted: 7}, "s3cret", testLogger())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/cron/sessions", nil)
	r.Header.Set("Authorization", "Bearer s3cret")

	h.HandleSessionCleanup(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if body := w.Body.String(); body != "{\"deleted\":7}\n" {
		t.Errorf("body = %q", body)
	}
}
