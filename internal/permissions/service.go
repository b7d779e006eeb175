package permissions

import (
	"context"
	"fmt"
	"strings"

	"github.com/n-admin/n-admin/internal/shared"
)

// RepositoryPort defines data access methods for permissions.
type RepositoryPort interface {
	ListPermissions(ctx context.Context, filter ListFilter) ([]Permission, error)
	CreatePermission(ctx context.Context, perm Permission) (Permission, error)
	DeletePermission(ctx context.Context, id int64) error
}

// Service handles permission business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListPermissions returns permissions matching the filter.
func (s *Service) ListPermissions(ctx context.Context, filter ListFilter) ([]Permission, error) {
	return s.repo.ListPermissions(ctx, filter)
}

// CreatePermission registers a permission code.
func (s *Service) CreatePermission(ctx context.Context, code, label, category string) (Permission, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return Permission{}, fmt.Errorf("permissions: code required: %w", shared.ErrValidation)
	}
	return s.repo.CreatePermission(ctx, Permission{
		Code:     code,
		Label:    strings.TrimSpace(label),
		Category: strings.TrimSpace(category),
	})
}

// DeletePermission removes a permission.
func (s *Service) DeletePermission(ctx context.Context, id int64) error {
	return s.repo.DeletePermission(ctx, id)
}
