package rbac_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/n-admin/n-admin/internal/rbac"
)

func TestDiffAssignmentsReplacesWholesale(t *testing.T) {
	attach, detach := rbac.DiffAssignments([]int64{1, 2, 3}, []int64{2, 4})

	assert.Equal(t, []int64{4}, attach)
	assert.ElementsMatch(t, []int64{1, 3}, detach)
}

// Re-supplying the identical set must be a no-op, so assigning permissions to
// a role twice has the same effect as assigning once.
func TestDiffAssignmentsIdempotent(t *testing.T) {
	attach, detach := rbac.DiffAssignments([]int64{1, 2}, []int64{1, 2})

	assert.Empty(t, attach)
	assert.Empty(t, detach)
}

func TestDiffAssignmentsCollapsesDuplicates(t *testing.T) {
	attach, detach := rbac.DiffAssignments(nil, []int64{5, 5, 6})

	assert.Equal(t, []int64{5, 6}, attach)
	assert.Empty(t, detach)
}

func TestDiffAssignmentsEmptyDesiredDetachesAll(t *testing.T) {
	attach, detach := rbac.DiffAssignments([]int64{7, 8}, nil)

	assert.Empty(t, attach)
	assert.ElementsMatch(t, []int64{7, 8}, detach)
}
