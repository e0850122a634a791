package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openshelf/gatekeeper/internal/auth"
	"github.com/openshelf/gatekeeper/internal/models"
	pkghttp "github.com/openshelf/gatekeeper/pkg/http"
)

// UnlockServiceInterface defines the unlock workflow operations the
// admin surface exposes.
type UnlockServiceInterface interface {
	Reconcile(ctx context.Context) ([]*models.UnlockRequest, error)
	ApproveUnlockRequest(ctx context.Context, requestID, userID, actorID string) error
	RejectUnlockRequest(ctx context.Context, requestID, actorID string) error
	DirectUnlock(ctx context.Context, userID, actorID string) error
}

// LockedUserLister enumerates currently locked accounts.
type LockedUserLister interface {
	ListLocked(ctx context.Context) ([]*models.User, error)
}

// AdminHandler serves the admin lockout-review surface.
type AdminHandler struct {
	unlocks UnlockServiceInterface
	users   LockedUserLister
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(unlocks UnlockServiceInterface, users LockedUserLister) *AdminHandler {
	return &AdminHandler{
		unlocks: unlocks,
		users:   users,
	}
}

// UnlockRequestResponse is the admin view of an unlock request
type UnlockRequestResponse struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Reason     string     `json:"reason"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// ApproveUnlockRequestBody identifies the account an approval unlocks
type ApproveUnlockRequestBody struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// ListUnlockRequests returns the pending unlock queue. A reconciliation
// pass runs first so the response includes synthesized requests for any
// locked account whose request record went missing.
func (h *AdminHandler) ListUnlockRequests(w http.ResponseWriter, r *http.Request) {
	pending, err := h.unlocks.Reconcile(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to list unlock requests")
		return
	}

	out := make([]*UnlockRequestResponse, 0, len(pending))
	for _, req := range pending {
		out = append(out, unlockRequestToResponse(req))
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{
		"unlock_requests": out,
		"count":           len(out),
	})
}

// ApproveUnlockRequest approves a pending request and unlocks the account
func (h *AdminHandler) ApproveUnlockRequest(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")
	if requestID == "" {
		pkghttp.WriteBadRequest(w, "Request ID is required")
		return
	}

	var body ApproveUnlockRequestBody
	if err := decodeAndValidate(r, &body); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.unlocks.ApproveUnlockRequest(r.Context(), requestID, body.UserID, claims.UserID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Unlock request not found or already resolved")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to approve unlock request")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "approved",
	})
}

// RejectUnlockRequest rejects a pending request; the account stays locked
func (h *AdminHandler) RejectUnlockRequest(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")
	if requestID == "" {
		pkghttp.WriteBadRequest(w, "Request ID is required")
		return
	}

	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.unlocks.RejectUnlockRequest(r.Context(), requestID, claims.UserID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Unlock request not found or already resolved")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to reject unlock request")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "rejected",
	})
}

// DirectUnlock unlocks an account without going through a request
func (h *AdminHandler) DirectUnlock(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "User ID is required")
		return
	}

	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.unlocks.DirectUnlock(r.Context(), userID, claims.UserID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "User not found")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to unlock user")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "unlocked",
	})
}

// ListLockedUsers returns every currently locked account
func (h *AdminHandler) ListLockedUsers(w http.ResponseWriter, r *http.Request) {
	locked, err := h.users.ListLocked(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to list locked users")
		return
	}

	out := make([]*UserProfileResponse, 0, len(locked))
	for _, user := range locked {
		out = append(out, lockedUserToResponse(user))
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{
		"users": out,
		"count": len(out),
	})
}

func unlockRequestToResponse(req *models.UnlockRequest) *UnlockRequestResponse {
	return &UnlockRequestResponse{
		ID:         req.ID,
		UserID:     req.UserID,
		Reason:     req.Reason,
		Status:     req.Status,
		CreatedAt:  req.CreatedAt,
		ResolvedAt: req.ResolvedAt,
	}
}
