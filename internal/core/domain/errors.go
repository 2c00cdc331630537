package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput covers malformed input that reached the hasher, such as
	// an empty password. Upstream validation should have filtered it.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCredentials is returned for both an unknown email and a wrong
	// password so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountCreation wraps any persistence failure during registration
	// other than a uniqueness conflict.
	ErrAccountCreation = errors.New("account creation failed")

	// ErrAccountNotFound is internal to the store boundary; it must never be
	// surfaced to a login caller as-is.
	ErrAccountNotFound = errors.New("account not found")

	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")

	// ErrCorruptDigest signals an unreadable stored password hash. This is a
	// data-integrity fault, not a user error.
	ErrCorruptDigest = errors.New("corrupt password digest")

	// ErrTooManyAttempts is returned when the login throttle trips.
	ErrTooManyAttempts = errors.New("too many login attempts")
)

// DuplicateIdentityError reports a registration conflict with an existing
// account, naming the conflicting field ("email" or "username").
type DuplicateIdentityError struct {
	Field string
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("account with the same %s already exists", e.Field)
}
