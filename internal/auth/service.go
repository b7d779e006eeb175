package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/n-admin/n-admin/internal/shared"
)

// RepositoryPort abstracts account and session storage for the service.
type RepositoryPort interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	TouchLastLogin(ctx context.Context, id int64) error
	CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	DeleteSession(ctx context.Context, token string) error
}

type Service struct {
	repo       RepositoryPort
	logger     *slog.Logger
	sessionTTL time.Duration
}

func NewService(repo RepositoryPort, logger *slog.Logger, sessionTTL time.Duration) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &Service{repo: repo, logger: logger, sessionTTL: sessionTTL}
}

// Authenticate verifies credentials against the stored bcrypt hash.
// Disabled accounts and unknown emails both map to ErrInvalidCredentials
// so callers cannot distinguish the two.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.Active() {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if err := s.repo.TouchLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("touch last login failed", "user_id", user.ID, "error", err)
	}
	return user, nil
}

// RegisterSession records the server-side session row for a logged-in user.
func (s *Service) RegisterSession(ctx context.Context, token string, userID int64) error {
	return s.repo.CreateSession(ctx, token, userID, time.Now().Add(s.sessionTTL))
}

// RemoveSession drops the server-side session row on logout.
func (s *Service) RemoveSession(ctx context.Context, token string) error {
	return s.repo.DeleteSession(ctx, token)
}

// UserByID loads the account backing an active session.
func (s *Service) UserByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}
