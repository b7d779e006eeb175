package roles

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/n-admin/n-admin/internal/shared"
)

// AuditRecorder persists audit trail entries for admin actions.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context, filter ListFilter) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, role Role) (Role, error)
	UpdateRole(ctx context.Context, role Role) error
	DeleteRole(ctx context.Context, id int64) error
	CountUsersWithRole(ctx context.Context, id int64) (int, error)
}

// Service handles role business logic.
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
		Entity:   "role",
		EntityID: strconv.FormatInt(entityID, 10),
	})
}

// ListRoles returns roles matching the filter.
func (s *Service) ListRoles(ctx context.Context, filter ListFilter) ([]Role, error) {
	return s.repo.ListRoles(ctx, filter)
}

// GetRole fetches a single role.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("roles: name required: %w", shared.ErrValidation)
	}
	role, err := s.repo.CreateRole(ctx, Role{
		Name:        name,
		Description: strings.TrimSpace(description),
		Status:      StatusActive,
	})
	if err != nil {
		return Role{}, err
	}
	s.recordAudit(ctx, "role.create", role.ID)
	return role, nil
}

// UpdateRole updates an existing role.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description, status string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("roles: name required: %w", shared.ErrValidation)
	}
	if status == "" {
		status = StatusActive
	}
	if err := s.repo.UpdateRole(ctx, Role{
		ID:          id,
		Name:        name,
		Description: strings.TrimSpace(description),
		Status:      status,
	}); err != nil {
		return err
	}
	s.recordAudit(ctx, "role.update", id)
	return nil
}

// DeleteRole removes a role. Roles still referenced by users are rejected;
// we never silently orphan accounts by cascading their role to null.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	count, err := s.repo.CountUsersWithRole(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("roles: %d users still assigned: %w", count, shared.ErrRoleInUse)
	}
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "role.delete", id)
	return nil
}
