package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openshelf/gatekeeper/internal/models"
	pkglogger "github.com/openshelf/gatekeeper/pkg/logger"
)

// NotificationWriter persists a single in-app notification.
type NotificationWriter interface {
	Create(ctx context.Context, n *models.Notification) error
}

// AdminLister enumerates privileged users for the fan-out.
type AdminLister interface {
	ListIDsByRole(ctx context.Context, role string) ([]string, error)
}

// NotificationService fans out lock alerts to administrators. All
// writes are independent and best-effort: individual failures are
// collected for logging and never fail the batch.
type NotificationService struct {
	notifications NotificationWriter
	users         AdminLister
	logger        *slog.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(notifications NotificationWriter, users AdminLister, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		logger:        logger,
	}
}

// NotifyAccountLocked writes an account-locked notification for every
// administrator. Never returns an error: the lock operation that
// triggers it must not be failed by its side channel.
func (s *NotificationService) NotifyAccountLocked(ctx context.Context, user *models.User) {
	adminIDs, err := s.users.ListIDsByRole(ctx, "admin")
	if err != nil {
		s.logger.Error("failed to enumerate admins for lock notification",
			slog.String("user_id", user.ID), slog.Any("error", err))
		return
	}

	title := "Account locked"
	body := fmt.Sprintf("The account %s was locked after %d failed login attempts and is awaiting review.",
		pkglogger.SanitizedEmail(user.Email), LockoutThreshold)

	var failed int
	for _, adminID := range adminIDs {
		n := &models.Notification{
			UserID: adminID,
			Kind:   models.NotificationKindAccountLocked,
			Title:  title,
			Body:   body,
		}
		if err := s.notifications.Create(ctx, n); err != nil {
			failed++
			s.logger.Warn("failed to write lock notification",
				slog.String("admin_id", adminID), slog.Any("error", err))
		}
	}

	if failed > 0 {
		s.logger.Warn("lock notification fan-out completed with failures",
			slog.String("user_id", user.ID),
			slog.Int("failed", failed),
			slog.Int("total", len(adminIDs)))
	}
}
