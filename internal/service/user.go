// Package service contains the business logic layer.
//
// This file implements account management: registration, login, session
// handling, subscription updates, and the Gmail connection flow.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/inboxpilot/inboxpilot/internal/domain"
	"github.com/inboxpilot/inboxpilot/internal/repository"
)

const (
	// BcryptCost is the cost factor for bcrypt password hashing.
	BcryptCost = 12

	// SessionDuration is how long a session stays valid.
	SessionDuration = 7 * 24 * time.Hour

	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 8

	// MaxPasswordLength stays under bcrypt's 72-byte input limit.
	MaxPasswordLength = 72
)

// UserService defines operations for accounts and sessions.
type UserService interface {
	Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.LoginResult, error)
	Logout(ctx context.Context, token string) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	// GetBySessionToken resolves a raw session token to its user, or an
	// unauthorized error for a missing or expired session.
	GetBySessionToken(ctx context.Context, token string) (*domain.User, error)
	// ConnectMailbox stores the user's Gmail refresh token.
	ConnectMailbox(ctx context.Context, userID uuid.UUID, refreshToken string) error
	// ApplySubscription writes a normalized billing update onto the user
	// row. Callers never resolve tiers before storing.
	ApplySubscription(ctx context.Context, userID uuid.UUID, update domain.SubscriptionUpdate) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

type userService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	logger   *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(users repository.UserRepository, sessions repository.SessionRepository, logger *slog.Logger) UserService {
	return &userService{
		users:    users,
		sessions: sessions,
		logger:   logger,
	}
}

func (s *userService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	const op = "UserService.Register"

	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.Invalid(op, "A valid email address is required")
	}
	if err := validatePassword(params.Password); err != nil {
		return nil, domain.Invalid(op, err.Error())
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.Conflict(op, "An account with this email already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Internal(err, op, "Failed to check for existing account")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to hash password")
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(params.Name),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, domain.Internal(err, op, "Failed to create account")
	}

	s.logger.Info("User registered", "user_id", user.ID, "email", user.Email)
	return user, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	const op = "UserService.Login"

	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Burn a comparison anyway so a missing account costs the
			// same as a wrong password.
			dummyHash := "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, domain.Unauthorized(op, "Invalid email or password")
		}
		return nil, domain.Internal(err, op, "Failed to look up account")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.Unauthorized(op, "Invalid email or password")
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate session token")
	}

	session := &domain.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hashSessionToken(token),
		ExpiresAt: time.Now().Add(SessionDuration),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, domain.Internal(err, op, "Failed to create session")
	}

	s.logger.Info("User logged in", "user_id", user.ID)
	return &domain.LoginResult{User: user, Token: token}, nil
}

func (s *userService) Logout(ctx context.Context, token string) error {
	const op = "UserService.Logout"

	if err := s.sessions.DeleteByTokenHash(ctx, hashSessionToken(token)); err != nil {
		return domain.Internal(err, op, "Failed to delete session")
	}
	return nil
}

func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "UserService.GetByID"

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound(op, "user", id.String())
		}
		return nil, domain.Internal(err, op, "Failed to fetch user")
	}
	return user, nil
}

func (s *userService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	const op = "UserService.GetBySessionToken"

	session, err := s.sessions.GetByTokenHash(ctx, hashSessionToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Unauthorized(op, "Invalid or expired session")
		}
		return nil, domain.Internal(err, op, "Failed to look up session")
	}
	if session.IsExpired() {
		_ = s.sessions.DeleteByTokenHash(ctx, session.TokenHash)
		return nil, domain.Unauthorized(op, "Invalid or expired session")
	}

	return s.GetByID(ctx, session.UserID)
}

func (s *userService) ConnectMailbox(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	const op = "UserService.ConnectMailbox"

	if refreshToken == "" {
		return domain.Invalid(op, "A refresh token is required")
	}
	if err := s.users.SetGoogleRefreshToken(ctx, userID, refreshToken); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NotFound(op, "user", userID.String())
		}
		return domain.Internal(err, op, "Failed to store mailbox credentials")
	}

	s.logger.Info("Mailbox connected", "user_id", userID)
	return nil
}

func (s *userService) ApplySubscription(ctx context.Context, userID uuid.UUID, update domain.SubscriptionUpdate) error {
	const op = "UserService.ApplySubscription"

	if err := s.users.UpdateSubscription(ctx, userID, update.Status, update.PlanName); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NotFound(op, "user", userID.String())
		}
		return domain.Internal(err, op, "Failed to update subscription")
	}

	s.logger.Info("Subscription updated",
		"user_id", userID,
		"status", update.Status,
		"plan", update.PlanName,
	)
	return nil
}

func (s *userService) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	const op = "UserService.DeleteExpiredSessions"

	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, domain.Internal(err, op, "Failed to delete expired sessions")
	}
	if n > 0 {
		s.logger.Info("Deleted expired sessions", "count", n)
	}
	return n, nil
}

// generateSessionToken returns 32 bytes of hex-encoded randomness.
func generateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashSessionToken hashes a raw token for storage. Tokens carry enough
// entropy that SHA-256 is sufficient here; bcrypt would only add latency to
// every authenticated request.
func hashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errors.New("Password must be at least 8 characters")
	}
	if len(password) > MaxPasswordLength {
		return errors.New("Password must be at most 72 characters")
	}
	return nil
}
