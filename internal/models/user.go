package models

import (
	"time"
)

type User struct {
	ID                string
	Email             string
	PasswordHash      string
	Name              string
	TokenKey          string // Per-user secret for composite token signing
	Role              string // "reader", "publisher", "admin"
	FailedAttempts    int    // Consecutive failed logins since last success/reset
	IsLocked          bool
	LockedAt          *time.Time // Set when IsLocked transitions to true
	PasswordChangedAt *time.Time // Last password change timestamp for token invalidation
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// LockoutUpdate is a partial update of a user's lockout fields.
// Nil pointers leave the corresponding column untouched. Clearing
// locked_at goes through ResetLockout, never through a partial update.
type LockoutUpdate struct {
	FailedAttempts *int
	IsLocked       *bool
	LockedAt       *time.Time
}
