package models

import "time"

// Unlock request statuses. A request is resolved exactly once and never
// re-opened.
const (
	UnlockStatusPending  = "pending"
	UnlockStatusApproved = "approved"
	UnlockStatusRejected = "rejected"
)

// AutoLockReason is the system-generated reason attached to requests
// created by the lock transition and the reconciliation pass.
const AutoLockReason = "account locked automatically after repeated failed login attempts"

// UnlockRequest represents an open or resolved ask to clear an account
// lockout. It references the user by ID only.
type UnlockRequest struct {
	ID         string
	UserID     string
	Reason     string
	Status     string
	CreatedAt  time.Time
	ResolvedAt *time.Time
}
