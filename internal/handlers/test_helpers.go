package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/openshelf/gatekeeper/internal/auth"
	"github.com/openshelf/gatekeeper/internal/models"
	"github.com/openshelf/gatekeeper/internal/services"
	pkghttp "github.com/openshelf/gatekeeper/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds user claims to request context for testing authenticated endpoints
func WithAuthContext(req *http.Request, userID, email string) *http.Request {
	claims := &models.TokenClaims{
		UserID: userID,
		Email:  email,
		Type:   "access",
	}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// WithURLParam injects a chi route parameter into the request context
func WithURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc        func(ctx context.Context, email, password, clientIP string) (*services.AuthResponse, error)
	RegisterFunc     func(ctx context.Context, email, password, name, clientIP string) (*services.AuthResponse, error)
	RefreshTokenFunc func(ctx context.Context, refreshToken string) (*services.AuthResponse, error)
}

func (m *MockAuthService) Login(ctx context.Context, email, password, clientIP string) (*services.AuthResponse, error) {
	if m.LoginFunc == nil {
		return nil, models.NewLoginError(models.LoginAccountNotFound)
	}
	return m.LoginFunc(ctx, email, password, clientIP)
}

func (m *MockAuthService) Register(ctx context.Context, email, password, name, clientIP string) (*services.AuthResponse, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrConflict
	}
	return m.RegisterFunc(ctx, email, password, name, clientIP)
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*services.AuthResponse, error) {
	if m.RefreshTokenFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.RefreshTokenFunc(ctx, refreshToken)
}

// MockUnlockService implements UnlockServiceInterface for testing
type MockUnlockService struct {
	ReconcileFunc            func(ctx context.Context) ([]*models.UnlockRequest, error)
	ApproveUnlockRequestFunc func(ctx context.Context, requestID, userID, actorID string) error
	RejectUnlockRequestFunc  func(ctx context.Context, requestID, actorID string) error
	DirectUnlockFunc         func(ctx context.Context, userID, actorID string) error
}

func (m *MockUnlockService) Reconcile(ctx context.Context) ([]*models.UnlockRequest, error) {
	if m.ReconcileFunc == nil {
		return []*models.UnlockRequest{}, nil
	}
	return m.ReconcileFunc(ctx)
}

func (m *MockUnlockService) ApproveUnlockRequest(ctx context.Context, requestID, userID, actorID string) error {
	if m.ApproveUnlockRequestFunc == nil {
		return nil
	}
	return m.ApproveUnlockRequestFunc(ctx, requestID, userID, actorID)
}

func (m *MockUnlockService) RejectUnlockRequest(ctx context.Context, requestID, actorID string) error {
	if m.RejectUnlockRequestFunc == nil {
		return nil
	}
	return m.RejectUnlockRequestFunc(ctx, requestID, actorID)
}

func (m *MockUnlockService) DirectUnlock(ctx context.Context, userID, actorID string) error {
	if m.DirectUnlockFunc == nil {
		return nil
	}
	return m.DirectUnlockFunc(ctx, userID, actorID)
}

// MockUserStore implements UserStore and LockedUserLister for testing
type MockUserStore struct {
	GetByIDFunc    func(ctx context.Context, id string) (*models.User, error)
	ListLockedFunc func(ctx context.Context) ([]*models.User, error)
}

func (m *MockUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetByIDFunc(ctx, id)
}

func (m *MockUserStore) ListLocked(ctx context.Context) ([]*models.User, error) {
	if m.ListLockedFunc == nil {
		return []*models.User{}, nil
	}
	return m.ListLockedFunc(ctx)
}
