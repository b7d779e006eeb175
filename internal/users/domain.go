package users

import "time"

// Account status values.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// User represents a managed user account. PasswordHash never leaves the
// service layer in responses.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	RoleID       *int64
	RoleName     string
	Superuser    bool
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}

// GetID implements rbac.Principal.
func (u User) GetID() int64 { return u.ID }

// IsSuperuser implements rbac.Principal.
func (u User) IsSuperuser() bool { return u.Superuser }
