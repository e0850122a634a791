package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// ErrStoreNotProvisioned marks storage for an optional feature that
	// was never migrated (undefined table). Absorbed at the service
	// boundary, never shown to users.
	ErrStoreNotProvisioned = errors.New("storage not provisioned")
)

// LoginFailureKind enumerates the closed set of login outcomes a caller
// can act on. Callers switch on the kind, never on message text.
type LoginFailureKind int

const (
	LoginAccountNotFound LoginFailureKind = iota
	LoginInvalidCredentials
	LoginAccountLocked    // Locked before this attempt
	LoginAccountLockedNow // This attempt crossed the threshold
)

// LoginError is the typed failure returned by credential verification.
// RemainingAttempts is informational and only meaningful for
// LoginInvalidCredentials.
type LoginError struct {
	Kind              LoginFailureKind
	RemainingAttempts int
}

func (e *LoginError) Error() string {
	switch e.Kind {
	case LoginAccountNotFound:
		return "account not found"
	case LoginInvalidCredentials:
		return fmt.Sprintf("invalid credentials (%d attempts remaining)", e.RemainingAttempts)
	case LoginAccountLocked:
		return "account is locked"
	case LoginAccountLockedNow:
		return "account has been locked after too many failed attempts"
	default:
		return "login failed"
	}
}

// NewLoginError constructs a LoginError of the given kind.
func NewLoginError(kind LoginFailureKind) *LoginError {
	return &LoginError{Kind: kind}
}

// NewInvalidCredentialsError carries the remaining-attempts count,
// clamped at zero.
func NewInvalidCredentialsError(remaining int) *LoginError {
	if remaining < 0 {
		remaining = 0
	}
	return &LoginError{Kind: LoginInvalidCredentials, RemainingAttempts: remaining}
}

// UnlockStoreError wraps a genuine unlock-request storage failure
// (anything other than the table being absent). These propagate to the
// caller.
type UnlockStoreError struct {
	Op  string
	Err error
}

func (e *UnlockStoreError) Error() string {
	return fmt.Sprintf("unlock store: %s: %v", e.Op, e.Err)
}

func (e *UnlockStoreError) Unwrap() error {
	return e.Err
}
