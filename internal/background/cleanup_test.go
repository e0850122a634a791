package background

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/openshelf/gatekeeper/internal/models"
)

type stubRequestPurger struct {
	deleted int64
	err     error
	calls   int
	cutoff  time.Time
}

func (s *stubRequestPurger) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.calls++
	s.cutoff = cutoff
	return s.deleted, s.err
}

type stubNotificationPurger struct {
	deleted int64
	err     error
	calls   int
}

func (s *stubNotificationPurger) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.calls++
	return s.deleted, s.err
}

func newTestCleanupManager(requests ResolvedRequestPurger, notifications NotificationPurger) *CleanupManager {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewCleanupManager(requests, notifications, logger,
		time.Hour, 30*24*time.Hour, 90*24*time.Hour)
}

func TestRunCleanup_PurgesBothStores(t *testing.T) {
	requests := &stubRequestPurger{deleted: 3}
	notifications := &stubNotificationPurger{deleted: 7}

	cm := newTestCleanupManager(requests, notifications)
	cm.runCleanup(context.Background())

	if requests.calls != 1 {
		t.Errorf("request purger calls: got %d, want 1", requests.calls)
	}
	if notifications.calls != 1 {
		t.Errorf("notification purger calls: got %d, want 1", notifications.calls)
	}

	wantCutoff := time.Now().Add(-30 * 24 * time.Hour)
	if diff := requests.cutoff.Sub(wantCutoff); diff < -time.Minute || diff > time.Minute {
		t.Errorf("resolved-request cutoff off by %v", diff)
	}
}

func TestRunCleanup_MissingRequestTableStillPurgesNotifications(t *testing.T) {
	requests := &stubRequestPurger{err: models.ErrStoreNotProvisioned}
	notifications := &stubNotificationPurger{deleted: 1}

	cm := newTestCleanupManager(requests, notifications)
	cm.runCleanup(context.Background())

	if notifications.calls != 1 {
		t.Errorf("notification purger calls: got %d, want 1", notifications.calls)
	}
}

func TestCleanupManager_Stop(t *testing.T) {
	requests := &stubRequestPurger{}
	notifications := &stubNotificationPurger{}

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	cm := NewCleanupManager(requests, notifications, logger,
		10*time.Millisecond, time.Hour, time.Hour)

	done := make(chan struct{})
	go func() {
		cm.Start(context.Background())
		close(done)
	}()

	time.Sleep(25 * time.Millisecond)
	cm.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup manager did not stop")
	}

	if requests.calls < 1 {
		t.Errorf("expected at least one cleanup run, got %d", requests.calls)
	}
}
