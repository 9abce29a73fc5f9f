package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/inboxpilot/inboxpilot/internal/domain"
)

func newUserFixture(t *testing.T) (UserService, *fakeUserRepo, *fakeSessionRepo) {
	t.Helper()
	users := newFakeUserRepo()
	sessions := newFakeSessionRepo()
	return NewUserService(users, sessions, testLogger()), users, sessions
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newUserFixture(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, domain.RegisterParams{
		Email:    "Alice@Example.com",
		Password: "correct-horse",
		Name:     "Alice",
	})
	if err != nil {
		t.Fatal(err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email should be normalized, got %q", user.Email)
	}
	if user.PasswordHash == "correct-horse" || user.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}
	if user.Plan() != domain.PlanFree {
		t.Errorf("new accounts start on Free, got %s", user.Plan())
	}

	result, err := svc.Login(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatal(err)
	}
	if result.Token == "" {
		t.Fatal("login must return a session token")
	}

	got, err := svc.GetBySessionToken(ctx, result.Token)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != user.ID {
		t.Errorf("session resolved to wrong user")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newUserFixture(t)

	testCases := []struct {
		name   string
		params domain.RegisterParams
	}{
		{"missing email", domain.RegisterParams{Password: "long-enough"}},
		{"malformed email", domain.RegisterParams{Email: "not-an-email", Password: "long-enough"}},
		{"short password", domain.RegisterParams{Email: "a@b.com", Password: "short"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.params)
			if domain.ErrorCode(err) != domain.EINVALID {
				t.Fatalf("expected invalid error, got %v", err)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newUserFixture(t)
	ctx := context.Background()

	params := domain.RegisterParams{Email: "dup@example.com", Password: "long-enough"}
	if _, err := svc.Register(ctx, params); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Register(ctx, params)
	if domain.ErrorCode(err) != domain.ECONFLICT {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newUserFixture(t)
	ctx := context.Background()

	_, _ = svc.Register(ctx, domain.RegisterParams{Email: "a@b.com", Password: "long-enough"})

	for _, attempt := range []struct{ email, password string }{
		{"a@b.com", "wrong-password"},
		{"nobody@b.com", "long-enough"},
	} {
		_, err := svc.Login(ctx, attempt.email, attempt.password)
		if domain.ErrorCode(err) != domain.EUNAUTHORIZED {
			t.Fatalf("expected unauthorized for %s, got %v", attempt.email, err)
		}
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	svc, _, _ := newUserFixture(t)
	ctx := context.Background()

	_, _ = svc.Register(ctx, domain.RegisterParams{Email: "a@b.com", Password: "long-enough"})
	result, err := svc.Login(ctx, "a@b.com", "long-enough")
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Logout(ctx, result.Token); err != nil {
		t.Fatal(err)
	}
	_, err = svc.GetBySessionToken(ctx, result.Token)
	if domain.ErrorCode(err) != domain.EUNAUTHORIZED {
		t.Fatalf("expected unauthorized after logout, got %v", err)
	}
}

func TestApplySubscription(t *testing.T) {
	svc, _, _ := newUserFixture(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, domain.RegisterParams{Email: "a@b.com", Password: "long-enough"})
	if err != nil {
		t.Fatal(err)
	}

	update := domain.SubscriptionUpdate{Status: "active", PlanName: "professional"}
	if err := svc.ApplySubscription(ctx, user.ID, update); err != nil {
		t.Fatal(err)
	}

	got, err := svc.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Plan() != domain.PlanProfessional {
		t.Errorf("plan = %s, want Professional", got.Plan())
	}

	err = svc.ApplySubscription(ctx, uuid.New(), update)
	if domain.ErrorCode(err) != domain.ENOTFOUND {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}
}

func TestConnectMailbox(t *testing.T) {
	svc, _, _ := newUserFixture(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, domain.RegisterParams{Email: "a@b.com", Password: "long-enough"})
	if err != nil {
		t.Fatal(err)
	}
	if user.MailboxConnected() {
		t.Fatal("new accounts have no mailbox")
	}

	if err := svc.ConnectMailbox(ctx, user.ID, "refresh-token"); err != nil {
		t.Fatal(err)
	}
	got, _ := svc.GetByID(ctx, user.ID)
	if !got.MailboxConnected() {
		t.Error("mailbox should be connected")
	}

	if err := svc.ConnectMailbox(ctx, user.ID, ""); domain.ErrorCode(err) != domain.EINVALID {
		t.Errorf("empty token must be rejected, got %v", err)
	}
}
