package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials covers both unknown-username and wrong-password
	// so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrAccountDisabled indicates the account was deactivated by an admin.
	ErrAccountDisabled = errors.New("account has been disabled")
	// ErrAccountLocked indicates a temporary lockout after repeated failures.
	ErrAccountLocked = errors.New("account is temporarily locked due to too many failed attempts")
	// ErrForbidden indicates the caller lacks the role or team access required.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDeskUnavailable indicates the desk cannot be booked in its current state.
	ErrDeskUnavailable = errors.New("desk is currently under maintenance")
	// ErrDoubleBooked indicates a conflicting confirmed booking already exists.
	ErrDoubleBooked = errors.New("desk is already booked for the selected time slot")
	// ErrUsernameTaken indicates a create-user conflict on the username.
	ErrUsernameTaken = errors.New("username already exists")
)

// RateLimitedError carries the window reset time for UI display.
type RateLimitedError struct {
	ResetAt time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many attempts, try again after %s", e.ResetAt.Format("15:04:05"))
}

// ValidationError reports a field-level input problem. It is always
// recoverable by the caller correcting input.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return e.Message
}

// PasswordStrengthError carries per-field feedback from the strength gate.
type PasswordStrengthError struct {
	Score    int
	Feedback []string
}

func (e *PasswordStrengthError) Error() string {
	return "new password is not strong enough"
}
