package rbac

import "time"

// Role represents a high-level permission grouping.
type Role struct {
	ID          int64
	Name        string
	Description string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission represents an atomic capability identified by a machine-checkable code.
type Permission struct {
	ID        int64
	Code      string
	Label     string
	Category  string
	CreatedAt time.Time
}

// Assignment ties a permission to a role.
type Assignment struct {
	RoleID       int64
	PermissionID int64
	CreatedAt    time.Time
}

// Principal describes the authenticated actor subject to authorization checks.
type Principal interface {
	GetID() int64
	IsSuperuser() bool
}
