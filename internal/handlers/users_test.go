package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openshelf/gatekeeper/internal/handlers"
	"github.com/openshelf/gatekeeper/internal/models"
)

func testUserRecord(id, role string) *models.User {
	now := time.Now()
	return &models.User{
		ID:        id,
		Email:     "reader@example.com",
		Name:      "Avid Reader",
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestGetUser_Self(t *testing.T) {
	users := &handlers.MockUserStore{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return testUserRecord(id, "reader"), nil
		},
	}

	handler := handlers.NewUserHandler(users)
	req := handlers.NewTestRequest(t, "GET", "/users/"+testUserID, nil)
	req = handlers.WithAuthContext(req, testUserID, "reader@example.com")
	req = handlers.WithURLParam(req, "id", testUserID)

	w := httptest.NewRecorder()
	handler.GetUser(w, req)

	var resp handlers.UserProfileResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, testUserID, resp.ID)
	assert.Nil(t, resp.IsLocked, "lockout state is admin-only")
	assert.Nil(t, resp.FailedAttempts, "lockout state is admin-only")
}

func TestGetUser_OtherUserForbidden(t *testing.T) {
	users := &handlers.MockUserStore{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return testUserRecord(id, "reader"), nil
		},
	}

	handler := handlers.NewUserHandler(users)
	req := handlers.NewTestRequest(t, "GET", "/users/"+testUserID, nil)
	req = handlers.WithAuthContext(req, "someone-else", "other@example.com")
	req = handlers.WithURLParam(req, "id", testUserID)

	w := httptest.NewRecorder()
	handler.GetUser(w, req)

	handlers.AssertErrorResponse(t, w, 403, "forbidden")
}

func TestGetUser_AdminSeesLockoutState(t *testing.T) {
	users := &handlers.MockUserStore{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			if id == testAdminID {
				return testUserRecord(id, "admin"), nil
			}
			user := testUserRecord(id, "reader")
			user.FailedAttempts = 5
			user.IsLocked = true
			lockedAt := time.Now().Add(-1 * time.Hour)
			user.LockedAt = &lockedAt
			return user, nil
		},
	}

	handler := handlers.NewUserHandler(users)
	req := handlers.NewTestRequest(t, "GET", "/users/"+testUserID, nil)
	req = handlers.WithAuthContext(req, testAdminID, "admin@example.com")
	req = handlers.WithURLParam(req, "id", testUserID)

	w := httptest.NewRecorder()
	handler.GetUser(w, req)

	var resp handlers.UserProfileResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.NotNil(t, resp.IsLocked)
	assert.NotNil(t, resp.FailedAttempts)
	assert.NotNil(t, resp.LockedAt)
}

func TestGetUser_NotFound(t *testing.T) {
	handler := handlers.NewUserHandler(&handlers.MockUserStore{})
	req := handlers.NewTestRequest(t, "GET", "/users/"+testUserID, nil)
	req = handlers.WithAuthContext(req, testUserID, "reader@example.com")
	req = handlers.WithURLParam(req, "id", testUserID)

	w := httptest.NewRecorder()
	handler.GetUser(w, req)

	handlers.AssertErrorResponse(t, w, 404, "not_found")
}
