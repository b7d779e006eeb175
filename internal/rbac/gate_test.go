package rbac_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/n-admin/n-admin/internal/rbac"
)

func TestGateAllowsSatisfiedRequirement(t *testing.T) {
	set := rbac.NewPermissionSet("user:read", "role:read")

	gate := rbac.Gate{Required: []string{"user:read", "user:delete"}, Policy: rbac.PolicyAny}
	assert.Equal(t, rbac.Allow, gate.Evaluate(set, false))

	gate = rbac.Gate{Required: []string{"user:read", "role:read"}, Policy: rbac.PolicyAll}
	assert.Equal(t, rbac.Allow, gate.Evaluate(set, false))
}

func TestGateDeniesOnlyWhenLoadingComplete(t *testing.T) {
	set := rbac.NewPermissionSet()
	gate := rbac.Gate{Required: []string{"user:delete"}, Policy: rbac.PolicyAll}

	assert.Equal(t, rbac.Pending, gate.Evaluate(set, true))
	assert.Equal(t, rbac.Deny, gate.Evaluate(set, false))
}

func TestGateSuperuserShortCircuits(t *testing.T) {
	gate := rbac.Gate{Required: []string{"user:delete", "role:delete"}, Policy: rbac.PolicyAll}

	assert.Equal(t, rbac.Allow, gate.Evaluate(rbac.AllPermissions(), true))
}
