package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound        = errors.New("resource not found")
	ErrSessionNotFound = fmt.Errorf("%w: session", ErrNotFound)
	ErrItemNotFound    = fmt.Errorf("%w: item", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("%w: user", ErrNotFound)

	// Validation errors
	ErrInvalidDiscrimination = errors.New("discrimination parameter must be positive")
	ErrInvalidStandardError  = errors.New("standard error must be non-negative")
	ErrNegativeItemCount     = errors.New("item count cannot be negative")
	ErrNegativeCoverage      = errors.New("domain coverage count cannot be negative")
	ErrUnknownDomain         = errors.New("unknown cognitive domain")

	// Session conflict errors
	ErrDuplicateResponse = errors.New("item already administered in this session")
	ErrSessionFinalized  = errors.New("session is finalized")
	ErrSessionStopped    = errors.New("session has stopped")

	// Selection errors
	ErrPoolExhausted = errors.New("item pool exhausted")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

func NewDuplicateResponseError(sessionID SessionID, itemID ItemID) error {
	return fmt.Errorf("%w: session %s item %s", ErrDuplicateResponse, sessionID, itemID)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidDiscrimination) ||
		errors.Is(err, ErrInvalidStandardError) ||
		errors.Is(err, ErrNegativeItemCount) ||
		errors.Is(err, ErrNegativeCoverage) ||
		errors.Is(err, ErrUnknownDomain)
}

func IsConflictError(err error) bool {
	return errors.Is(err, ErrDuplicateResponse) ||
		errors.Is(err, ErrSessionFinalized) ||
		errors.Is(err, ErrSessionStopped)
}

func IsPoolExhaustedError(err error) bool {
	return errors.Is(err, ErrPoolExhausted)
}
