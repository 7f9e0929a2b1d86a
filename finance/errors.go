/*
errors.go - Centralized error types for the collaborators

PURPOSE:
  The engine itself never fails: every aggregation is a total function
  that falls back to zero values. Errors only exist at the edges, where records
  are validated, stored and served. They all live here so the store, the
  factory and the API agree on what a failure means.

ERROR CATEGORIES:
  1. Lookup errors - a referenced record does not exist
  2. Validation errors - input breaks a data-model invariant
  3. Transition errors - a lifecycle action is not allowed from a status

USAGE:
  if finance.IsNotFound(err) {
      // 404
  }
*/
package finance

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when a record breaks a data-model invariant.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition is returned when a status change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInstallmentsExceeded is returned when paying would exceed the total
	// number of installments.
	ErrInstallmentsExceeded = errors.New("installments paid would exceed total installments")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// Invalid is a shorthand for building a *ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInstallmentsExceeded)
}
