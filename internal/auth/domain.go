package auth

import "time"

// User represents an authenticated user account.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Superuser    bool
	Status       string
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// Active reports whether the account may log in.
func (u *User) Active() bool {
	return u != nil && u.Status == "active"
}
