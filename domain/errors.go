/*
errors.go - Centralized error taxonomy for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every failure surfaced by the engine belongs to one of four categories;
  nothing is retried automatically - failures propagate to the caller.

ERROR CATEGORIES:
  1. Validation  - missing/invalid field, bad date ordering, bad holder
  2. Conflict    - duplicate PAN, duplicate policy number
  3. Not found   - missing record, or record not in the expected state
  4. Invalid state - operation on a cancelled policy

USAGE:
  Callers match with errors.Is against the sentinels, or errors.As against
  the structured types when they need field detail:

    if errors.Is(err, domain.ErrConflict) { ... }

    var verr *domain.ValidationError
    if errors.As(err, &verr) { show(verr.Fields) }

SEE ALSO:
  - store.go: Store implementations translate constraint violations here
*/
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all input-validation failures.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when a uniqueness constraint is violated
	// (duplicate PAN, duplicate policy number).
	ErrConflict = errors.New("conflict with existing record")

	// ErrNotFound is returned when a record does not exist, or is not in the
	// state the requested transition expects (e.g. paying an already-paid
	// installment).
	ErrNotFound = errors.New("record not found")

	// ErrInvalidState is returned for operations rejected by the policy state
	// machine (cancel-on-cancelled, pay-on-cancelled).
	ErrInvalidState = errors.New("invalid policy state for operation")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports missing or invalid fields. Fields lists every field
// that failed so the caller can surface all of them at once.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError reports a uniqueness violation.
type ConflictError struct {
	Field string // e.g. "pan", "policy_number"
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Field, e.Value)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NotFoundError reports a missing record or a record outside the expected
// state for the requested transition.
type NotFoundError struct {
	Kind string // "customer", "policy", "premium", "agent"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found or not in expected state", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidStateError reports an operation rejected by the status machine.
type InvalidStateError struct {
	PolicyID PolicyID
	Status   PolicyStatus
	Op       string // "cancel", "mark_paid"
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s policy %s in status %s", e.Op, e.PolicyID, e.Status)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is caused by the caller's input and
// should be surfaced for correction rather than logged as a system fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidState)
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
