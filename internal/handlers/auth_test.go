package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/gatekeeper/internal/handlers"
	"github.com/openshelf/gatekeeper/internal/models"
	"github.com/openshelf/gatekeeper/internal/services"
)

func TestLoginHandler_Success(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, clientIP string) (*services.AuthResponse, error) {
			assert.Equal(t, "reader@example.com", email)
			return &services.AuthResponse{
				AccessToken:  "access_token_123",
				RefreshToken: "refresh_token_123",
			}, nil
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "Reader@Example.com",
		Password: "password123",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	var resp services.AuthResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "access_token_123", resp.AccessToken)
}

func TestLoginHandler_UnknownAccountIsGeneric401(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, clientIP string) (*services.AuthResponse, error) {
			return nil, models.NewLoginError(models.LoginAccountNotFound)
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "nobody@example.com",
		Password: "password123",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	resp := handlers.AssertErrorResponse(t, w, 401, "unauthorized")
	assert.Nil(t, resp.RemainingAttempts)
}

func TestLoginHandler_InvalidCredentialsCarriesRemaining(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, clientIP string) (*services.AuthResponse, error) {
			return nil, models.NewInvalidCredentialsError(2)
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "reader@example.com",
		Password: "wrongpassword",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	resp := handlers.AssertErrorResponse(t, w, 401, "invalid_credentials")
	require.NotNil(t, resp.RemainingAttempts)
	assert.Equal(t, 2, *resp.RemainingAttempts)
}

func TestLoginHandler_AccountLockedNowIs423(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, clientIP string) (*services.AuthResponse, error) {
			return nil, models.NewLoginError(models.LoginAccountLockedNow)
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "reader@example.com",
		Password: "wrongpassword",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 423, "account_locked_now")
}

func TestLoginHandler_AlreadyLockedIs423(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, clientIP string) (*services.AuthResponse, error) {
			return nil, models.NewLoginError(models.LoginAccountLocked)
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "reader@example.com",
		Password: "password123",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 423, "account_locked")
}

func TestLoginHandler_PassesClientIPToService(t *testing.T) {
	var gotIP string
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, clientIP string) (*services.AuthResponse, error) {
			gotIP = clientIP
			return nil, models.NewLoginError(models.LoginAccountNotFound)
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "reader@example.com",
		Password: "password123",
	})
	req.RemoteAddr = "203.0.113.9:51234"

	w := httptest.NewRecorder()
	handler.Login(w, req)

	assert.Equal(t, "203.0.113.9", gotIP)
}

func TestLoginHandler_InvalidBody(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email: "not-an-email",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestRegisterHandler_Success(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		RegisterFunc: func(ctx context.Context, email, password, name, clientIP string) (*services.AuthResponse, error) {
			return &services.AuthResponse{
				AccessToken: "access_token_123",
				User:        &services.UserResponse{ID: "user_1", Role: "reader"},
			}, nil
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/register", handlers.RegisterRequest{
		Email:    "new@example.com",
		Password: "Str0ng!passphrase",
		Name:     "New Reader",
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	var resp services.AuthResponse
	handlers.AssertJSONResponse(t, w, 201, &resp)
	assert.Equal(t, "reader", resp.User.Role)
}

func TestRegisterHandler_DuplicateEmail(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		RegisterFunc: func(ctx context.Context, email, password, name, clientIP string) (*services.AuthResponse, error) {
			return nil, models.ErrConflict
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/register", handlers.RegisterRequest{
		Email:    "taken@example.com",
		Password: "Str0ng!passphrase",
		Name:     "Someone",
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	handlers.AssertErrorResponse(t, w, 409, "conflict")
}

func TestRefreshTokenHandler_InvalidToken(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		RefreshTokenFunc: func(ctx context.Context, refreshToken string) (*services.AuthResponse, error) {
			return nil, models.ErrUnauthorized
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/refresh", handlers.RefreshTokenRequest{
		RefreshToken: "expired-token",
	})

	w := httptest.NewRecorder()
	handler.RefreshToken(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}
