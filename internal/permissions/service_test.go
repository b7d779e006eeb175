package permissions_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n-admin/n-admin/internal/permissions"
	"github.com/n-admin/n-admin/internal/shared"
	_ "github.com/n-admin/n-admin/testing"
)

type memPermRepo struct {
	created []permissions.Permission
}

func (r *memPermRepo) ListPermissions(ctx context.Context, filter permissions.ListFilter) ([]permissions.Permission, error) {
	return r.created, nil
}

func (r *memPermRepo) CreatePermission(ctx context.Context, perm permissions.Permission) (permissions.Permission, error) {
	perm.ID = int64(len(r.created) + 1)
	r.created = append(r.created, perm)
	return perm, nil
}

func (r *memPermRepo) DeletePermission(ctx context.Context, id int64) error {
	return nil
}

func TestCreatePermissionNormalisesCode(t *testing.T) {
	repo := &memPermRepo{}
	svc := permissions.NewService(repo)

	perm, err := svc.CreatePermission(context.Background(), "  User:Read  ", " Read users ", "user")
	require.NoError(t, err)

	assert.Equal(t, "user:read", perm.Code)
	assert.Equal(t, "Read users", perm.Label)
}

func TestCreatePermissionRequiresCode(t *testing.T) {
	repo := &memPermRepo{}
	svc := permissions.NewService(repo)

	_, err := svc.CreatePermission(context.Background(), "   ", "label", "cat")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Empty(t, repo.created)
}
