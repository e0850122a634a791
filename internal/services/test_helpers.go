package services

import (
	"context"
	"fmt"
	"time"

	"github.com/openshelf/gatekeeper/internal/models"
)

// MockUserRepository implements UserRepository, LockedAccountStore and
// AdminLister for testing
type MockUserRepository struct {
	GetByIDFunc             func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc          func(ctx context.Context, email string) (*models.User, error)
	CreateFunc              func(ctx context.Context, user *models.User) (*models.User, error)
	RecordFailedAttemptFunc func(ctx context.Context, id string) (int, error)
	UpdateLockoutFieldsFunc func(ctx context.Context, id string, update models.LockoutUpdate) (*models.User, error)
	ResetLockoutFunc        func(ctx context.Context, id string) error
	ListLockedFunc          func(ctx context.Context) ([]*models.User, error)
	ListIDsByRoleFunc       func(ctx context.Context, role string) ([]string, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) RecordFailedAttempt(ctx context.Context, id string) (int, error) {
	if m.RecordFailedAttemptFunc != nil {
		return m.RecordFailedAttemptFunc(ctx, id)
	}
	return 0, models.ErrInternalServer
}

func (m *MockUserRepository) UpdateLockoutFields(ctx context.Context, id string, update models.LockoutUpdate) (*models.User, error) {
	if m.UpdateLockoutFieldsFunc != nil {
		return m.UpdateLockoutFieldsFunc(ctx, id, update)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) ResetLockout(ctx context.Context, id string) error {
	if m.ResetLockoutFunc != nil {
		return m.ResetLockoutFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) ListLocked(ctx context.Context) ([]*models.User, error) {
	if m.ListLockedFunc != nil {
		return m.ListLockedFunc(ctx)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) ListIDsByRole(ctx context.Context, role string) ([]string, error) {
	if m.ListIDsByRoleFunc != nil {
		return m.ListIDsByRoleFunc(ctx, role)
	}
	return []string{}, nil
}

// MockUnlockRequestCreator implements UnlockRequestCreator for testing
type MockUnlockRequestCreator struct {
	EnsureUnlockRequestFunc func(ctx context.Context, userID, reason string) (*models.UnlockRequest, error)
	Created                 []*models.UnlockRequest
}

func (m *MockUnlockRequestCreator) EnsureUnlockRequest(ctx context.Context, userID, reason string) (*models.UnlockRequest, error) {
	if m.EnsureUnlockRequestFunc != nil {
		return m.EnsureUnlockRequestFunc(ctx, userID, reason)
	}
	req := &models.UnlockRequest{
		ID:        fmt.Sprintf("req_%d", len(m.Created)+1),
		UserID:    userID,
		Reason:    reason,
		Status:    models.UnlockStatusPending,
		CreatedAt: time.Now(),
	}
	m.Created = append(m.Created, req)
	return req, nil
}

// MockLockNotifier implements LockNotifier for testing
type MockLockNotifier struct {
	NotifyAccountLockedFunc func(ctx context.Context, user *models.User)
	Notified                []string
}

func (m *MockLockNotifier) NotifyAccountLocked(ctx context.Context, user *models.User) {
	if m.NotifyAccountLockedFunc != nil {
		m.NotifyAccountLockedFunc(ctx, user)
		return
	}
	m.Notified = append(m.Notified, user.ID)
}

// MockNotificationWriter implements NotificationWriter for testing
type MockNotificationWriter struct {
	CreateFunc func(ctx context.Context, n *models.Notification) error
	Written    []*models.Notification
}

func (m *MockNotificationWriter) Create(ctx context.Context, n *models.Notification) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, n)
	}
	m.Written = append(m.Written, n)
	return nil
}

// MockEmailSender implements EmailSender for testing
type MockEmailSender struct {
	SendFunc func(ctx context.Context, to, subject, body string) error
	Sent     []string
}

func (m *MockEmailSender) Send(ctx context.Context, to, subject, body string) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, to, subject, body)
	}
	m.Sent = append(m.Sent, to)
	return nil
}

// FakeUnlockStore is a stateful in-memory UnlockRequestStore used for
// workflow and reconciliation tests. Set NotProvisioned to simulate the
// table never having been migrated.
type FakeUnlockStore struct {
	NotProvisioned bool
	Requests       []*models.UnlockRequest
	nextID         int
}

func (f *FakeUnlockStore) Create(ctx context.Context, userID, reason string) (*models.UnlockRequest, error) {
	if f.NotProvisioned {
		return nil, models.ErrStoreNotProvisioned
	}
	f.nextID++
	req := &models.UnlockRequest{
		ID:        fmt.Sprintf("req_%d", f.nextID),
		UserID:    userID,
		Reason:    reason,
		Status:    models.UnlockStatusPending,
		CreatedAt: time.Now(),
	}
	f.Requests = append(f.Requests, req)
	return req, nil
}

func (f *FakeUnlockStore) List(ctx context.Context) ([]*models.UnlockRequest, error) {
	if f.NotProvisioned {
		return nil, models.ErrStoreNotProvisioned
	}
	// Newest first
	out := make([]*models.UnlockRequest, len(f.Requests))
	for i, req := range f.Requests {
		out[len(f.Requests)-1-i] = req
	}
	return out, nil
}

func (f *FakeUnlockStore) ListPending(ctx context.Context) ([]*models.UnlockRequest, error) {
	if f.NotProvisioned {
		return nil, models.ErrStoreNotProvisioned
	}
	out := make([]*models.UnlockRequest, 0)
	for i := len(f.Requests) - 1; i >= 0; i-- {
		if f.Requests[i].Status == models.UnlockStatusPending {
			out = append(out, f.Requests[i])
		}
	}
	return out, nil
}

func (f *FakeUnlockStore) GetByID(ctx context.Context, id string) (*models.UnlockRequest, error) {
	if f.NotProvisioned {
		return nil, models.ErrStoreNotProvisioned
	}
	for _, req := range f.Requests {
		if req.ID == id {
			return req, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *FakeUnlockStore) HasPendingForUser(ctx context.Context, userID string) (bool, error) {
	if f.NotProvisioned {
		return false, models.ErrStoreNotProvisioned
	}
	for _, req := range f.Requests {
		if req.UserID == userID && req.Status == models.UnlockStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeUnlockStore) Resolve(ctx context.Context, id, status string) error {
	if f.NotProvisioned {
		return models.ErrStoreNotProvisioned
	}
	for _, req := range f.Requests {
		if req.ID == id && req.Status == models.UnlockStatusPending {
			now := time.Now()
			req.Status = status
			req.ResolvedAt = &now
			return nil
		}
	}
	return models.ErrNotFound
}

// NewTestUser constructs an unlocked reader account
func NewTestUser(id, email, name string) *models.User {
	now := time.Now()
	return &models.User{
		ID:        id,
		Email:     email,
		Name:      name,
		Role:      "reader",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestUserWithPassword creates a user with a password hash
func NewTestUserWithPassword(id, email, name, passwordHash string) *models.User {
	user := NewTestUser(id, email, name)
	user.PasswordHash = passwordHash
	return user
}

// NewTestUserLocked creates a locked user
func NewTestUserLocked(id, email, name string) *models.User {
	user := NewTestUser(id, email, name)
	lockedAt := time.Now().Add(-1 * time.Hour)
	user.FailedAttempts = LockoutThreshold
	user.IsLocked = true
	user.LockedAt = &lockedAt
	return user
}

// NewTestUserWithFailures creates a user partway to the threshold
func NewTestUserWithFailures(id, email, name string, failures int) *models.User {
	user := NewTestUser(id, email, name)
	user.FailedAttempts = failures
	return user
}
