package users

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/n-admin/n-admin/internal/shared"
)

// AuditRecorder persists audit trail entries for admin actions.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, filter ListFilter) ([]User, int, error)
	GetUser(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, user User) (User, error)
	UpdateUser(ctx context.Context, id int64, username, email string, roleID *int64, passwordHash *string) error
	SetStatus(ctx context.Context, id int64, status string) error
	DeleteUser(ctx context.Context, id int64) error
}

// CreateInput carries the fields accepted when creating a user.
type CreateInput struct {
	Username string
	Email    string
	Password string
	RoleID   *int64
}

// UpdateInput carries the fields accepted when updating a user. Password is
// optional; when empty the stored hash is preserved unchanged.
type UpdateInput struct {
	Username string
	Email    string
	Password string
	RoleID   *int64
}

// Service handles user business logic.
type Service struct {
	repo  RepositoryPort
	audit AuditRecorder
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// WithAudit attaches an audit trail. Recording is best effort and never
// fails the underlying operation.
func (s *Service) WithAudit(audit AuditRecorder) *Service {
	s.audit = audit
	return s
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64) {
	if s.audit == nil {
		return
	}
	var actorID int64
	if sess := shared.SessionFromContext(ctx); sess != nil {
		actorID, _ = strconv.ParseInt(sess.User(), 10, 64)
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(entityID, 10),
	})
}

// ListUsers returns a filtered page of users.
func (s *Service) ListUsers(ctx context.Context, filter ListFilter) ([]User, int, error) {
	return s.repo.ListUsers(ctx, filter)
}

// GetUser fetches a single user.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateUser hashes the supplied password and stores the new account. The
// plaintext never reaches the repository.
func (s *Service) CreateUser(ctx context.Context, input CreateInput) (User, error) {
	hash, err := hashPassword(input.Password)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.CreateUser(ctx, User{
		Username:     strings.TrimSpace(input.Username),
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: hash,
		RoleID:       input.RoleID,
		Status:       StatusActive,
	})
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, "user.create", user.ID)
	return user, nil
}

// UpdateUser updates identifying fields. A supplied password is re-hashed;
// an omitted one leaves the stored credential untouched.
func (s *Service) UpdateUser(ctx context.Context, id int64, input UpdateInput) error {
	var passwordHash *string
	if input.Password != "" {
		hash, err := hashPassword(input.Password)
		if err != nil {
			return err
		}
		passwordHash = &hash
	}
	if err := s.repo.UpdateUser(ctx, id, strings.TrimSpace(input.Username), strings.TrimSpace(input.Email), input.RoleID, passwordHash); err != nil {
		return err
	}
	s.recordAudit(ctx, "user.update", id)
	return nil
}

// DisableUser marks an account disabled. Superusers cannot be disabled.
func (s *Service) DisableUser(ctx context.Context, id int64) error {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if user.Superuser {
		return fmt.Errorf("users: disable superuser: %w", shared.ErrPolicyViolation)
	}
	if err := s.repo.SetStatus(ctx, id, StatusDisabled); err != nil {
		return err
	}
	s.recordAudit(ctx, "user.disable", id)
	return nil
}

// EnableUser marks an account active again.
func (s *Service) EnableUser(ctx context.Context, id int64) error {
	return s.repo.SetStatus(ctx, id, StatusActive)
}

// DeleteUser removes an account. Superusers are rejected before any store
// mutation.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if user.Superuser {
		return fmt.Errorf("users: delete superuser: %w", shared.ErrPolicyViolation)
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "user.delete", id)
	return nil
}

func hashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("users: hash password: %w", err)
	}
	return string(hash), nil
}
