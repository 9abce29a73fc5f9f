package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/inboxpilot/inboxpilot/internal/domain"
)

func TestGetUserEmptyContext(t *testing.T) {
	if user := GetUser(context.Background()); user != nil {
		t.Errorf("expected nil user, got %+v", user)
	}
}

func TestGetUserRoundTrip(t *testing.T) {
	want := &domain.User{ID: uuid.New(), Email: "a@b.com"}
	ctx := ContextWithUser(context.Background(), want)

	got := GetUser(ctx)
	if got == nil || got.ID != want.ID {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestRequireUserRejectsAnonymous(t *testing.T) {
	m := &AuthMiddleware{}
	called := false
	h := m.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sync", nil))

	if called {
		t.Error("handler must not run for anonymous requests")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
}

func TestRequireUserPassesAuthenticated(t *testing.T) {
	m := &AuthMiddleware{}
	called := false
	h := m.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/sync", nil)
	req = req.WithContext(ContextWithUser(req.Context(), &domain.User{ID: uuid.New()}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !called {
		t.Error("handler should run for authenticated requests")
	}
}

func TestSessionCookieLifecycle(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, "raw-token", true)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != SessionCookieName || c.Value != "raw-token" {
		t.Errorf("cookie = %+v", c)
	}
	if !c.HttpOnly || !c.Secure {
		t.Error("session cookie must be HttpOnly and Secure in production")
	}

	rec = httptest.NewRecorder()
	ClearSessionCookie(rec, true)
	c = rec.Result().Cookies()[0]
	if c.MaxAge >= 0 {
		t.Errorf("cleared cookie must have negative MaxAge, got %d", c.MaxAge)
	}
}
