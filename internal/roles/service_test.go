package roles_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n-admin/n-admin/internal/roles"
	"github.com/n-admin/n-admin/internal/shared"
	_ "github.com/n-admin/n-admin/testing"
)

type memRepo struct {
	byID        map[int64]roles.Role
	usersByRole map[int64]int
	nextID      int64
	deleteCalls int
}

func newMemRepo() *memRepo {
	return &memRepo{byID: make(map[int64]roles.Role), usersByRole: make(map[int64]int), nextID: 1}
}

func (m *memRepo) ListRoles(ctx context.Context, filter roles.ListFilter) ([]roles.Role, error) {
	var out []roles.Role
	for _, r := range m.byID {
		out = append(out, r)
	}
	return out, nil
}

func (m *memRepo) GetRole(ctx context.Context, id int64) (roles.Role, error) {
	r, ok := m.byID[id]
	if !ok {
		return roles.Role{}, shared.ErrNotFound
	}
	return r, nil
}

func (m *memRepo) CreateRole(ctx context.Context, role roles.Role) (roles.Role, error) {
	role.ID = m.nextID
	m.nextID++
	m.byID[role.ID] = role
	return role, nil
}

func (m *memRepo) UpdateRole(ctx context.Context, role roles.Role) error {
	if _, ok := m.byID[role.ID]; !ok {
		return shared.ErrNotFound
	}
	m.byID[role.ID] = role
	return nil
}

func (m *memRepo) DeleteRole(ctx context.Context, id int64) error {
	m.deleteCalls++
	if _, ok := m.byID[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memRepo) CountUsersWithRole(ctx context.Context, id int64) (int, error) {
	return m.usersByRole[id], nil
}

func TestCreateRoleRequiresName(t *testing.T) {
	svc := roles.NewService(newMemRepo())

	_, err := svc.CreateRole(context.Background(), "   ", "desc")

	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRoleTrimsAndDefaultsStatus(t *testing.T) {
	repo := newMemRepo()
	svc := roles.NewService(repo)

	role, err := svc.CreateRole(context.Background(), "  editor ", " can edit ")
	require.NoError(t, err)

	assert.Equal(t, "editor", role.Name)
	assert.Equal(t, "can edit", role.Description)
	assert.Equal(t, roles.StatusActive, role.Status)
}

// Deleting a role that users still reference is rejected rather than
// cascading their role to null.
func TestDeleteRoleInUseRejected(t *testing.T) {
	repo := newMemRepo()
	svc := roles.NewService(repo)
	role, err := svc.CreateRole(context.Background(), "editor", "")
	require.NoError(t, err)
	repo.usersByRole[role.ID] = 2

	err = svc.DeleteRole(context.Background(), role.ID)

	assert.ErrorIs(t, err, shared.ErrRoleInUse)
	assert.Zero(t, repo.deleteCalls)
	_, exists := repo.byID[role.ID]
	assert.True(t, exists)
}

func TestDeleteUnreferencedRole(t *testing.T) {
	repo := newMemRepo()
	svc := roles.NewService(repo)
	role, err := svc.CreateRole(context.Background(), "ghost", "")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRole(context.Background(), role.ID))
	_, exists := repo.byID[role.ID]
	assert.False(t, exists)
}
