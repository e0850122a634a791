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

// UserStore is the read surface the user handler needs.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// UserHandler serves user profile lookups.
type UserHandler struct {
	users UserStore
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users UserStore) *UserHandler {
	return &UserHandler{users: users}
}

// UserProfileResponse is the profile DTO. Lockout fields are only
// populated for admin callers.
type UserProfileResponse struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	Role           string     `json:"role"`
	FailedAttempts *int       `json:"failed_attempts,omitempty"`
	IsLocked       *bool      `json:"is_locked,omitempty"`
	LockedAt       *time.Time `json:"locked_at,omitempty"`
	CreatedAt      string     `json:"created_at"`
}

// GetUser returns a user profile. Callers can read their own profile;
// admins can read anyone's, including the lockout state.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
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

	isAdmin := false
	if claims.UserID != userID {
		requester, err := h.users.GetByID(r.Context(), claims.UserID)
		if err != nil || requester.Role != "admin" {
			pkghttp.WriteForbidden(w, "Cannot access another user's profile")
			return
		}
		isAdmin = true
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "User not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	resp := &UserProfileResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
	if isAdmin {
		attempts := user.FailedAttempts
		locked := user.IsLocked
		resp.FailedAttempts = &attempts
		resp.IsLocked = &locked
		resp.LockedAt = user.LockedAt
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// lockedUserToResponse builds the admin view of a locked account
func lockedUserToResponse(user *models.User) *UserProfileResponse {
	attempts := user.FailedAttempts
	locked := user.IsLocked
	return &UserProfileResponse{
		ID:             user.ID,
		Email:          user.Email,
		Name:           user.Name,
		Role:           user.Role,
		FailedAttempts: &attempts,
		IsLocked:       &locked,
		LockedAt:       user.LockedAt,
		CreatedAt:      user.CreatedAt.Format(time.RFC3339),
	}
}
