package shared

// Core platform permission codes.
const (
	PermUserRead   = "user:read"
	PermUserCreate = "user:create"
	PermUserUpdate = "user:update"
	PermUserDelete = "user:delete"

	PermRoleRead   = "role:read"
	PermRoleCreate = "role:create"
	PermRoleUpdate = "role:update"
	PermRoleDelete = "role:delete"
	PermRoleAssign = "role:assign"

	PermPermissionRead   = "permission:read"
	PermPermissionCreate = "permission:create"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUserRead,
		PermUserCreate,
		PermUserUpdate,
		PermUserDelete,
		PermRoleRead,
		PermRoleCreate,
		PermRoleUpdate,
		PermRoleDelete,
		PermRoleAssign,
		PermPermissionRead,
		PermPermissionCreate,
	}
}
