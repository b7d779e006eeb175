package permissions

import "time"

// Permission is reference data: a machine-checkable code with a human label.
type Permission struct {
	ID        int64
	Code      string
	Label     string
	Category  string
	CreatedAt time.Time
}
