package models

import (
	"errors"
	"fmt"
)

// Common domain errors shared by services and the HTTP layer.
var (
	ErrNotFound             = errors.New("not found")
	ErrAlreadyResolved      = errors.New("verification request already resolved")
	ErrInvalidTransition    = errors.New("invalid order status transition")
	ErrInvalidPhase         = errors.New("checkout is not in the required phase")
	ErrDuplicatePending     = errors.New("a pending verification request already exists")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrConfirmationRequired = errors.New("account deletion must be confirmed")
	ErrPremiumRequired      = errors.New("active premium subscription required")
	ErrConcurrentRequest    = errors.New("another request for this checkout is in progress")
	ErrTooManyRequests      = errors.New("too many requests, try again later")
	ErrForbidden            = errors.New("not allowed for this account")
)

// ValidationError reports a missing or malformed field. Nothing is committed
// when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// UploadError wraps a failed media upload. The caller may retry the step.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed: %v", e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
