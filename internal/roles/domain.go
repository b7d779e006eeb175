package roles

import "time"

// Role status values.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// Role represents a role for management.
type Role struct {
	ID          int64
	Name        string
	Description string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
