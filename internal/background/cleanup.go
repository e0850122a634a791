package background

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/openshelf/gatekeeper/internal/models"
)

// ResolvedRequestPurger deletes resolved unlock requests older than the cutoff.
type ResolvedRequestPurger interface {
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NotificationPurger deletes notifications older than the cutoff.
type NotificationPurger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupManager periodically purges resolved unlock requests and stale
// admin notifications. Pending requests are never touched: they are the
// reconciliation routine's source of truth.
type CleanupManager struct {
	requests              ResolvedRequestPurger
	notifications         NotificationPurger
	logger                *slog.Logger
	interval              time.Duration
	resolvedRetention     time.Duration
	notificationRetention time.Duration
	stopCh                chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	requests ResolvedRequestPurger,
	notifications NotificationPurger,
	logger *slog.Logger,
	interval, resolvedRetention, notificationRetention time.Duration,
) *CleanupManager {
	return &CleanupManager{
		requests:              requests,
		notifications:         notifications,
		logger:                logger,
		interval:              interval,
		resolvedRetention:     resolvedRetention,
		notificationRetention: notificationRetention,
		stopCh:                make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	now := time.Now()

	deleted, err := cm.requests.DeleteResolvedBefore(cleanupCtx, now.Add(-cm.resolvedRetention))
	if err != nil {
		// The unlock request table is optional; its absence is not a
		// cleanup failure.
		if !errors.Is(err, models.ErrStoreNotProvisioned) {
			cm.logger.Error("failed to purge resolved unlock requests", slog.Any("error", err))
		}
	} else if deleted > 0 {
		cm.logger.Info("purged resolved unlock requests", slog.Int64("rows_deleted", deleted))
	}

	deleted, err = cm.notifications.DeleteOlderThan(cleanupCtx, now.Add(-cm.notificationRetention))
	if err != nil {
		cm.logger.Error("failed to purge stale notifications", slog.Any("error", err))
	} else if deleted > 0 {
		cm.logger.Info("purged stale notifications", slog.Int64("rows_deleted", deleted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
