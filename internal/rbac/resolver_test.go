package rbac_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/n-admin/n-admin/internal/rbac"
)

type testPrincipal struct {
	id        int64
	superuser bool
}

func (p testPrincipal) GetID() int64      { return p.id }
func (p testPrincipal) IsSuperuser() bool { return p.superuser }

func TestResolveSuperuserGrantsEverything(t *testing.T) {
	set := rbac.ResolveEffectivePermissions(testPrincipal{id: 1, superuser: true}, nil)

	assert.True(t, set.IsAll())
	assert.True(t, set.Has("user:delete"))
	assert.True(t, set.Has("anything:at-all"))
	assert.True(t, set.HasAll([]string{"role:read", "role:update", "permission:create"}))
}

func TestResolveWithoutRoleYieldsEmptySet(t *testing.T) {
	set := rbac.ResolveEffectivePermissions(testPrincipal{id: 2}, nil)

	assert.Equal(t, 0, set.Len())
	assert.False(t, set.Has("user:read"))
}

func TestResolveNilPrincipalYieldsEmptySet(t *testing.T) {
	set := rbac.ResolveEffectivePermissions(nil, []string{"user:read"})

	assert.False(t, set.Has("user:read"))
}

func TestResolveUnionOfRolePermissions(t *testing.T) {
	set := rbac.ResolveEffectivePermissions(testPrincipal{id: 3}, []string{"user:read", "User:Read", " role:read "})

	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Has("user:read"))
	assert.True(t, set.Has("role:read"))
	assert.False(t, set.Has("user:delete"))
}

// HasAny over an empty requirement is false while HasAll is true; the pair is
// asserted together because the two vacuous cases deliberately differ.
func TestVacuousAnyAndAllDiffer(t *testing.T) {
	set := rbac.NewPermissionSet("user:read")

	assert.False(t, set.HasAny(nil))
	assert.False(t, set.HasAny([]string{}))
	assert.True(t, set.HasAll(nil))
	assert.True(t, set.HasAll([]string{}))
}

func TestPermissionSetCodesSorted(t *testing.T) {
	set := rbac.NewPermissionSet("b:x", "a:y", "b:x")

	assert.Equal(t, []string{"a:y", "b:x"}, set.Codes())
	assert.Nil(t, rbac.AllPermissions().Codes())
}
