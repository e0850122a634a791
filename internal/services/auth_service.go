package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openshelf/gatekeeper/internal/auth"
	"github.com/openshelf/gatekeeper/internal/models"
	pkgauth "github.com/openshelf/gatekeeper/pkg/auth"
	pkglogger "github.com/openshelf/gatekeeper/pkg/logger"
)

// LockoutThreshold is the number of consecutive failed attempts that
// locks an account. Fixed, not configurable.
const LockoutThreshold = 5

// UserRepository defines the account-store operations the verifier needs
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	RecordFailedAttempt(ctx context.Context, id string) (int, error)
	UpdateLockoutFields(ctx context.Context, id string, update models.LockoutUpdate) (*models.User, error)
	ResetLockout(ctx context.Context, id string) error
}

// UnlockRequestCreator opens a remediation request when an account
// locks. Creation is best-effort from the verifier's perspective and
// skips accounts that already have a pending request open.
type UnlockRequestCreator interface {
	EnsureUnlockRequest(ctx context.Context, userID, reason string) (*models.UnlockRequest, error)
}

// LockNotifier alerts privileged users that an account was locked.
type LockNotifier interface {
	NotifyAccountLocked(ctx context.Context, user *models.User)
}

// AuthService handles credential verification and the failed-login
// lockout state machine.
type AuthService struct {
	repo        UserRepository
	tm          *auth.TokenManager
	unlocks     UnlockRequestCreator
	notifier    LockNotifier
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	repo UserRepository,
	tm *auth.TokenManager,
	unlocks UnlockRequestCreator,
	notifier LockNotifier,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		repo:        repo,
		tm:          tm,
		unlocks:     unlocks,
		notifier:    notifier,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// AuthResponse represents the response from auth operations
type AuthResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	User         *UserResponse `json:"user"`
}

// successHealsLockout reports whether a successful password check may
// clear accumulated failures and a standing lock without an approved
// unlock request. Single toggle point for the success-clears-lock
// policy; flip to false if unlock approval must stay mandatory.
func successHealsLockout(user *models.User) bool {
	return true
}

// Login verifies credentials against the lockout state machine.
// Failures are *models.LoginError values the caller switches on.
// clientIP is recorded on audit events only.
func (s *AuthService) Login(ctx context.Context, email, password, clientIP string) (*AuthResponse, error) {
	if email = strings.ToLower(strings.TrimSpace(email)); email == "" {
		s.logger.Warn("login attempt with empty email")
		return nil, models.NewLoginError(models.LoginAccountNotFound)
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("login failed: unknown account")
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				FailureReason: "account_not_found",
				IPAddress:     clientIP,
				Success:       false,
			})
			return nil, models.NewLoginError(models.LoginAccountNotFound)
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Locked accounts are rejected before the password is checked and
	// without touching the counter.
	if user.IsLocked {
		s.logger.Info("login blocked: account locked", slog.String("user_id", user.ID))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			FailureReason: "account_locked",
			IPAddress:     clientIP,
			Success:       false,
		})
		return nil, models.NewLoginError(models.LoginAccountLocked)
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, s.handleFailedAttempt(ctx, user, clientIP)
	}

	if user.FailedAttempts > 0 || user.IsLocked {
		if successHealsLockout(user) {
			if err := s.repo.ResetLockout(ctx, user.ID); err != nil {
				s.logger.Error("failed to reset lockout state after successful login",
					slog.String("user_id", user.ID), slog.Any("error", err))
				return nil, models.ErrInternalServer
			}
		}
	}

	accessToken, err := s.tm.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	refreshToken, err := s.tm.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		IPAddress: clientIP,
		Success:   true,
	})

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         userModelToResponse(user),
	}, nil
}

// handleFailedAttempt increments the failure counter and, on crossing
// the threshold, performs the lock transition. The returned error is
// always a *models.LoginError; the side channels (request creation,
// admin notification) never replace it.
func (s *AuthService) handleFailedAttempt(ctx context.Context, user *models.User, clientIP string) error {
	count, err := s.repo.RecordFailedAttempt(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to record failed attempt",
			slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if count < LockoutThreshold {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			FailureReason: "invalid_credentials",
			IPAddress:     clientIP,
			Success:       false,
		})
		return models.NewInvalidCredentialsError(LockoutThreshold - count)
	}

	now := time.Now()
	locked := true
	attempts := LockoutThreshold
	if _, err := s.repo.UpdateLockoutFields(ctx, user.ID, models.LockoutUpdate{
		FailedAttempts: &attempts,
		IsLocked:       &locked,
		LockedAt:       &now,
	}); err != nil {
		s.logger.Error("failed to persist account lock",
			slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	// Best-effort side channels. Their failure must not mask the
	// locked-now outcome. An account relocked while an earlier request
	// is still pending keeps that request instead of growing a second.
	if _, err := s.unlocks.EnsureUnlockRequest(ctx, user.ID, models.AutoLockReason); err != nil {
		s.logger.Error("failed to open unlock request for locked account",
			slog.String("user_id", user.ID), slog.Any("error", err))
	}
	s.notifier.NotifyAccountLocked(ctx, user)

	s.auditLogger.LogLockoutEvent(pkglogger.AuditEvent{
		EventType: "account_locked",
		UserID:    user.ID,
		IPAddress: clientIP,
		Success:   true,
	})

	return models.NewLoginError(models.LoginAccountLockedNow)
}

// Register creates a new reader account in the unlocked initial state
func (s *AuthService) Register(ctx context.Context, email, password, name, clientIP string) (*AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("registration failed: user already exists")
		return nil, models.ErrConflict
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check if user exists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := time.Now()
	user := &models.User{
		Email:             email,
		PasswordHash:      hashedPassword,
		Name:              name,
		Role:              "reader",
		PasswordChangedAt: &now,
	}

	createdUser, err := s.repo.Create(ctx, user)
	if err != nil {
		s.logger.Error("failed to create user", slog.Any("error", err))
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		return nil, models.ErrInternalServer
	}

	accessToken, err := s.tm.GenerateAccessToken(createdUser.ID, createdUser.Email)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", createdUser.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	refreshToken, err := s.tm.GenerateRefreshToken(createdUser.ID, createdUser.Email)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("user_id", createdUser.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user registered", slog.String("user_id", createdUser.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "user_registered",
		UserID:    createdUser.ID,
		IPAddress: clientIP,
		Success:   true,
	})

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         userModelToResponse(createdUser),
	}, nil
}

// RefreshToken generates a new token pair from a refresh token
func (s *AuthService) RefreshToken(ctx context.Context, refreshTokenString string) (*AuthResponse, error) {
	if refreshTokenString = strings.TrimSpace(refreshTokenString); refreshTokenString == "" {
		return nil, models.ErrUnauthorized
	}

	claims, err := s.tm.ValidateToken(refreshTokenString)
	if err != nil {
		s.logger.Info("refresh token validation failed", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}

	if claims.Type != "refresh" {
		s.logger.Warn("refresh attempt with non-refresh token", slog.String("user_id", claims.UserID))
		return nil, models.ErrUnauthorized
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("user not found for token refresh", slog.String("user_id", claims.UserID))
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user for token refresh", slog.String("user_id", claims.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// A lock acquired after token issuance still blocks the refresh.
	if user.IsLocked {
		s.logger.Info("token refresh blocked: account locked", slog.String("user_id", user.ID))
		return nil, models.ErrUnauthorized
	}

	// Invalidate tokens issued before the last password change
	if user.PasswordChangedAt != nil && claims.IssuedAt != nil {
		if claims.IssuedAt.Time.Before(*user.PasswordChangedAt) {
			s.logger.Info("token refresh blocked: issued before password change",
				slog.String("user_id", user.ID))
			return nil, models.ErrUnauthorized
		}
	}

	accessToken, err := s.tm.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	newRefreshToken, err := s.tm.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("token refreshed", slog.String("user_id", user.ID))

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		User:         userModelToResponse(user),
	}, nil
}

// userModelToResponse converts a user model to response DTO
func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}
