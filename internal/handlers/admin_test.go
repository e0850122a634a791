package handlers_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/gatekeeper/internal/handlers"
	"github.com/openshelf/gatekeeper/internal/models"
)

const testAdminID = "5f2458e5-7f37-4db2-a1f5-03a3b5a20a42"
const testUserID = "0b54c8d3-92c1-4f4c-9d2a-4cf2b7f0a111"

func TestListUnlockRequests_RunsReconciliation(t *testing.T) {
	reconciled := false
	unlocks := &handlers.MockUnlockService{
		ReconcileFunc: func(ctx context.Context) ([]*models.UnlockRequest, error) {
			reconciled = true
			return []*models.UnlockRequest{
				{
						ID:        "req_1",
					UserID:    testUserID,
					Reason:    models.AutoLockReason,
					Status:    models.UnlockStatusPending,
					CreatedAt: time.Now(),
				},
			}, nil
		},
	}

	handler := handlers.NewAdminHandler(unlocks, &handlers.MockUserStore{})
	req := handlers.WithAuthContext(
		handlers.NewTestRequest(t, "GET", "/admin/unlock-requests", nil),
		testAdminID, "admin@example.com")

	w := httptest.NewRecorder()
	handler.ListUnlockRequests(w, req)

	var resp struct {
		UnlockRequests []*handlers.UnlockRequestResponse `json:"unlock_requests"`
		Count          int                               `json:"count"`
	}
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.True(t, reconciled, "listing must reconcile first")
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, testUserID, resp.UnlockRequests[0].UserID)
}

func TestListUnlockRequests_EmptyQueue(t *testing.T) {
	handler := handlers.NewAdminHandler(&handlers.MockUnlockService{}, &handlers.MockUserStore{})
	req := handlers.WithAuthContext(
		handlers.NewTestRequest(t, "GET", "/admin/unlock-requests", nil),
		testAdminID, "admin@example.com")

	w := httptest.NewRecorder()
	handler.ListUnlockRequests(w, req)

	var resp struct {
		UnlockRequests []*handlers.UnlockRequestResponse `json:"unlock_requests"`
		Count          int                               `json:"count"`
	}
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, 0, resp.Count)
	assert.NotNil(t, resp.UnlockRequests, "empty queue must serialize as [], not null")
}

func TestApproveUnlockRequest(t *testing.T) {
	var gotRequestID, gotUserID, gotActorID string
	unlocks := &handlers.MockUnlockService{
		ApproveUnlockRequestFunc: func(ctx context.Context, requestID, userID, actorID string) error {
			gotRequestID, gotUserID, gotActorID = requestID, userID, actorID
			return nil
		},
	}

	handler := handlers.NewAdminHandler(unlocks, &handlers.MockUserStore{})
	req := handlers.NewTestRequest(t, "POST", "/admin/unlock-requests/req_1/approve",
		handlers.ApproveUnlockRequestBody{UserID: testUserID})
	req = handlers.WithAuthContext(req, testAdminID, "admin@example.com")
	req = handlers.WithURLParam(req, "id", "req_1")

	w := httptest.NewRecorder()
	handler.ApproveUnlockRequest(w, req)

	var resp map[string]string
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "approved", resp["status"])
	assert.Equal(t, "req_1", gotRequestID)
	assert.Equal(t, testUserID, gotUserID)
	assert.Equal(t, testAdminID, gotActorID)
}

func TestApproveUnlockRequest_NotFound(t *testing.T) {
	unlocks := &handlers.MockUnlockService{
		ApproveUnlockRequestFunc: func(ctx context.Context, requestID, userID, actorID string) error {
			return models.ErrNotFound
		},
	}

	handler := handlers.NewAdminHandler(unlocks, &handlers.MockUserStore{})
	req := handlers.NewTestRequest(t, "POST", "/admin/unlock-requests/req_missing/approve",
		handlers.ApproveUnlockRequestBody{UserID: testUserID})
	req = handlers.WithAuthContext(req, testAdminID, "admin@example.com")
	req = handlers.WithURLParam(req, "id", "req_missing")

	w := httptest.NewRecorder()
	handler.ApproveUnlockRequest(w, req)

	handlers.AssertErrorResponse(t, w, 404, "not_found")
}

func TestApproveUnlockRequest_InvalidUserID(t *testing.T) {
	handler := handlers.NewAdminHandler(&handlers.MockUnlockService{}, &handlers.MockUserStore{})
	req := handlers.NewTestRequest(t, "POST", "/admin/unlock-requests/req_1/approve",
		handlers.ApproveUnlockRequestBody{UserID: "not-a-uuid"})
	req = handlers.WithAuthContext(req, testAdminID, "admin@example.com")
	req = handlers.WithURLParam(req, "id", "req_1")

	w := httptest.NewRecorder()
	handler.ApproveUnlockRequest(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestRejectUnlockRequest(t *testing.T) {
	var gotActorID string
	unlocks := &handlers.MockUnlockService{
		RejectUnlockRequestFunc: func(ctx context.Context, requestID, actorID string) error {
			gotActorID = actorID
			return nil
		},
	}

	handler := handlers.NewAdminHandler(unlocks, &handlers.MockUserStore{})
	req := handlers.NewTestRequest(t, "POST", "/admin/unlock-requests/req_1/reject", nil)
	req = handlers.WithAuthContext(req, testAdminID, "admin@example.com")
	req = handlers.WithURLParam(req, "id", "req_1")

	w := httptest.NewRecorder()
	handler.RejectUnlockRequest(w, req)

	var resp map[string]string
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "rejected", resp["status"])
	assert.Equal(t, testAdminID, gotActorID)
}

func TestDirectUnlock(t *testing.T) {
	var gotUserID string
	unlocks := &handlers.MockUnlockService{
		DirectUnlockFunc: func(ctx context.Context, userID, actorID string) error {
			gotUserID = userID
			return nil
		},
	}

	handler := handlers.NewAdminHandler(unlocks, &handlers.MockUserStore{})
	req := handlers.NewTestRequest(t, "POST", "/admin/users/"+testUserID+"/unlock", nil)
	req = handlers.WithAuthContext(req, testAdminID, "admin@example.com")
	req = handlers.WithURLParam(req, "id", testUserID)

	w := httptest.NewRecorder()
	handler.DirectUnlock(w, req)

	var resp map[string]string
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "unlocked", resp["status"])
	assert.Equal(t, testUserID, gotUserID)
}

func TestDirectUnlock_UnknownUser(t *testing.T) {
	unlocks := &handlers.MockUnlockService{
		DirectUnlockFunc: func(ctx context.Context, userID, actorID string) error {
			return models.ErrNotFound
		},
	}

	handler := handlers.NewAdminHandler(unlocks, &handlers.MockUserStore{})
	req := handlers.NewTestRequest(t, "POST", "/admin/users/"+testUserID+"/unlock", nil)
	req = handlers.WithAuthContext(req, testAdminID, "admin@example.com")
	req = handlers.WithURLParam(req, "id", testUserID)

	w := httptest.NewRecorder()
	handler.DirectUnlock(w, req)

	handlers.AssertErrorResponse(t, w, 404, "not_found")
}

func TestListLockedUsers(t *testing.T) {
	lockedAt := time.Now().Add(-2 * time.Hour)
	users := &handlers.MockUserStore{
		ListLockedFunc: func(ctx context.Context) ([]*models.User, error) {
			return []*models.User{
				{
					ID:             testUserID,
					Email:          "locked@example.com",
					Name:           "Locked Reader",
					Role:           "reader",
					FailedAttempts: 5,
					IsLocked:       true,
					LockedAt:       &lockedAt,
					CreatedAt:      time.Now().Add(-24 * time.Hour),
				},
			}, nil
		},
	}

	handler := handlers.NewAdminHandler(&handlers.MockUnlockService{}, users)
	req := handlers.WithAuthContext(
		handlers.NewTestRequest(t, "GET", "/admin/users/locked", nil),
		testAdminID, "admin@example.com")

	w := httptest.NewRecorder()
	handler.ListLockedUsers(w, req)

	var resp struct {
		Users []*handlers.UserProfileResponse `json:"users"`
		Count int                             `json:"count"`
	}
	handlers.AssertJSONResponse(t, w, 200, &resp)
	require.Equal(t, 1, resp.Count)
	require.NotNil(t, resp.Users[0].IsLocked)
	assert.True(t, *resp.Users[0].IsLocked)
	require.NotNil(t, resp.Users[0].FailedAttempts)
	assert.Equal(t, 5, *resp.Users[0].FailedAttempts)
}

func TestListLockedUsers_StoreFailure(t *testing.T) {
	users := &handlers.MockUserStore{
		ListLockedFunc: func(ctx context.Context) ([]*models.User, error) {
			return nil, errors.New("connection refused")
		},
	}

	handler := handlers.NewAdminHandler(&handlers.MockUnlockService{}, users)
	req := handlers.WithAuthContext(
		handlers.NewTestRequest(t, "GET", "/admin/users/locked", nil),
		testAdminID, "admin@example.com")

	w := httptest.NewRecorder()
	handler.ListLockedUsers(w, req)

	handlers.AssertErrorResponse(t, w, 500, "internal_error")
}
