package models

import "time"

// Notification kinds written by this service.
const (
	NotificationKindAccountLocked = "account_locked"
)

// Notification is a persisted in-app notification for a user.
type Notification struct {
	ID        string
	UserID    string // Recipient
	Kind      string
	Title     string
	Body      string
	Read      bool
	CreatedAt time.Time
}
