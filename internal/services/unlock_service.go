package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openshelf/gatekeeper/internal/models"
	pkglogger "github.com/openshelf/gatekeeper/pkg/logger"
)

// UnlockRequestStore defines the storage operations for unlock
// requests. The backing table is optional: implementations signal its
// absence with models.ErrStoreNotProvisioned, which this service
// absorbs.
type UnlockRequestStore interface {
	Create(ctx context.Context, userID, reason string) (*models.UnlockRequest, error)
	List(ctx context.Context) ([]*models.UnlockRequest, error)
	ListPending(ctx context.Context) ([]*models.UnlockRequest, error)
	GetByID(ctx context.Context, id string) (*models.UnlockRequest, error)
	HasPendingForUser(ctx context.Context, userID string) (bool, error)
	Resolve(ctx context.Context, id, status string) error
}

// LockedAccountStore is the subset of UserRepository the unlock
// workflow needs.
type LockedAccountStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	ResetLockout(ctx context.Context, id string) error
	ListLocked(ctx context.Context) ([]*models.User, error)
}

// EmailSender delivers unlock decision emails. Optional; failures are
// logged, never propagated.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// UnlockService manages the unlock-request workflow: creation on lock,
// admin resolution, direct unlocks and the reconciliation pass that
// re-synthesizes requests for locked accounts missing one.
type UnlockService struct {
	requests    UnlockRequestStore
	users       LockedAccountStore
	email       EmailSender // may be nil
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewUnlockService creates a new UnlockService. email may be nil when
// no sender is configured.
func NewUnlockService(
	requests UnlockRequestStore,
	users LockedAccountStore,
	email EmailSender,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *UnlockService {
	return &UnlockService{
		requests:    requests,
		users:       users,
		email:       email,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// CreateUnlockRequest opens a pending request for the account. Returns
// (nil, nil) when the request table is not provisioned, so best-effort
// callers are unaffected. Any other storage failure is reported as an
// UnlockStoreError.
func (s *UnlockService) CreateUnlockRequest(ctx context.Context, userID, reason string) (*models.UnlockRequest, error) {
	req, err := s.requests.Create(ctx, userID, reason)
	if err != nil {
		if errors.Is(err, models.ErrStoreNotProvisioned) {
			s.logger.Debug("unlock request storage not provisioned, skipping request creation",
				slog.String("user_id", userID))
			return nil, nil
		}
		return nil, &models.UnlockStoreError{Op: "create", Err: err}
	}

	s.logger.Info("unlock request created",
		slog.String("request_id", req.ID),
		slog.String("user_id", userID))

	return req, nil
}

// EnsureUnlockRequest opens a pending request for the account unless
// one is already open. At most one pending request should exist per
// account; the store carries no uniqueness constraint, so the check
// happens here.
func (s *UnlockService) EnsureUnlockRequest(ctx context.Context, userID, reason string) (*models.UnlockRequest, error) {
	has, err := s.requests.HasPendingForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrStoreNotProvisioned) {
			s.logger.Debug("unlock request storage not provisioned, skipping request creation",
				slog.String("user_id", userID))
			return nil, nil
		}
		return nil, &models.UnlockStoreError{Op: "ensure", Err: err}
	}
	if has {
		s.logger.Debug("pending unlock request already open", slog.String("user_id", userID))
		return nil, nil
	}

	return s.CreateUnlockRequest(ctx, userID, reason)
}

// ListUnlockRequests returns all requests, newest first. Empty (not an
// error) when the table is not provisioned.
func (s *UnlockService) ListUnlockRequests(ctx context.Context) ([]*models.UnlockRequest, error) {
	requests, err := s.requests.List(ctx)
	if err != nil {
		if errors.Is(err, models.ErrStoreNotProvisioned) {
			s.logger.Debug("unlock request storage not provisioned, returning empty list")
			return []*models.UnlockRequest{}, nil
		}
		return nil, &models.UnlockStoreError{Op: "list", Err: err}
	}
	return requests, nil
}

// ApproveUnlockRequest marks the request approved and resets the
// account's lockout state. The account reset is the critical step: it
// still runs when the request update fails for any reason other than a
// missing or unknown request.
func (s *UnlockService) ApproveUnlockRequest(ctx context.Context, requestID, userID, actorID string) error {
	resolveErr := s.requests.Resolve(ctx, requestID, models.UnlockStatusApproved)
	if resolveErr != nil {
		if errors.Is(resolveErr, models.ErrStoreNotProvisioned) {
			// Nothing to approve.
			s.logger.Debug("unlock request storage not provisioned, approve is a no-op")
			return nil
		}
		if errors.Is(resolveErr, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("unlock request update failed, still resetting account",
			slog.String("request_id", requestID), slog.Any("error", resolveErr))
	}

	if err := s.users.ResetLockout(ctx, userID); err != nil {
		s.logger.Error("failed to reset lockout on approval",
			slog.String("user_id", userID), slog.Any("error", err))
		return err
	}

	s.auditLogger.LogLockoutEvent(pkglogger.AuditEvent{
		EventType: "unlock_approved",
		UserID:    userID,
		ActorID:   actorID,
		Success:   true,
	})

	s.sendDecisionEmail(ctx, userID,
		"Your account has been unlocked",
		"An administrator approved your unlock request. You can sign in again.")

	if resolveErr != nil {
		return &models.UnlockStoreError{Op: "approve", Err: resolveErr}
	}
	return nil
}

// RejectUnlockRequest marks the request rejected. The account's lockout
// state is untouched.
func (s *UnlockService) RejectUnlockRequest(ctx context.Context, requestID, actorID string) error {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, models.ErrStoreNotProvisioned) {
			s.logger.Debug("unlock request storage not provisioned, reject is a no-op")
			return nil
		}
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		return &models.UnlockStoreError{Op: "reject", Err: err}
	}

	if err := s.requests.Resolve(ctx, requestID, models.UnlockStatusRejected); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		return &models.UnlockStoreError{Op: "reject", Err: err}
	}

	s.auditLogger.LogLockoutEvent(pkglogger.AuditEvent{
		EventType: "unlock_rejected",
		UserID:    req.UserID,
		ActorID:   actorID,
		Success:   true,
	})

	s.sendDecisionEmail(ctx, req.UserID,
		"Your unlock request was declined",
		"An administrator reviewed and declined your unlock request. Contact support if you believe this is a mistake.")

	return nil
}

// DirectUnlock resets an account's lockout state without touching any
// request record. Uses the same reset primitive as approval so the two
// paths cannot diverge.
func (s *UnlockService) DirectUnlock(ctx context.Context, userID, actorID string) error {
	if err := s.users.ResetLockout(ctx, userID); err != nil {
		return err
	}

	s.auditLogger.LogLockoutEvent(pkglogger.AuditEvent{
		EventType: "direct_unlock",
		UserID:    userID,
		ActorID:   actorID,
		Success:   true,
	})

	s.sendDecisionEmail(ctx, userID,
		"Your account has been unlocked",
		"An administrator unlocked your account. You can sign in again.")

	return nil
}

// Reconcile guarantees every locked account has a pending unlock
// request. The lock flag and the request record are written by
// different operations that can fail independently; this pass is the
// convergence mechanism. Idempotent: a second run with no intervening
// logins creates nothing. Returns the pending requests after any
// synthesis so the caller observes a consistent snapshot.
func (s *UnlockService) Reconcile(ctx context.Context) ([]*models.UnlockRequest, error) {
	locked, err := s.users.ListLocked(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list locked accounts: %w", err)
	}

	pending, err := s.requests.ListPending(ctx)
	if err != nil {
		if errors.Is(err, models.ErrStoreNotProvisioned) {
			s.logger.Debug("unlock request storage not provisioned, skipping reconciliation")
			return []*models.UnlockRequest{}, nil
		}
		return nil, &models.UnlockStoreError{Op: "reconcile", Err: err}
	}

	covered := make(map[string]bool, len(pending))
	for _, req := range pending {
		covered[req.UserID] = true
	}

	created := 0
	for _, user := range locked {
		if covered[user.ID] {
			continue
		}

		req, err := s.CreateUnlockRequest(ctx, user.ID, models.AutoLockReason)
		if err != nil {
			s.logger.Error("reconciliation failed to create unlock request",
				slog.String("user_id", user.ID), slog.Any("error", err))
			continue
		}
		if req == nil {
			continue
		}

		created++
		s.auditLogger.LogLockoutEvent(pkglogger.AuditEvent{
			EventType: "reconcile_created_request",
			UserID:    user.ID,
			Success:   true,
		})
	}

	if created == 0 {
		return pending, nil
	}

	s.logger.Info("reconciliation synthesized unlock requests", slog.Int("created", created))

	pending, err = s.requests.ListPending(ctx)
	if err != nil && !errors.Is(err, models.ErrStoreNotProvisioned) {
		return nil, &models.UnlockStoreError{Op: "reconcile", Err: err}
	}
	return pending, nil
}

// sendDecisionEmail is best-effort. Lookup or delivery failures are
// logged and swallowed.
func (s *UnlockService) sendDecisionEmail(ctx context.Context, userID, subject, body string) {
	if s.email == nil {
		return
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn("could not load user for decision email",
			slog.String("user_id", userID), slog.Any("error", err))
		return
	}

	if err := s.email.Send(ctx, user.Email, subject, body); err != nil {
		s.logger.Warn("failed to send decision email",
			slog.String("email", pkglogger.SanitizedEmail(user.Email)),
			slog.Any("error", err))
	}
}
