/*
errors.go - Centralized error types for the engine, stores and API

ERROR CATEGORIES:
  1. Collaborator errors - a lookup the engine depends on failed
  2. Store errors        - missing rows, lost optimistic-lock races
  3. Workflow errors     - illegal application status transitions

Business-rule rejections are NOT errors. They are returned as values
(leave.ValidationResult); see leave/result.go.

USAGE:
  if errors.Is(err, generic.ErrDependencyUnavailable) {
      // employee / holiday / history lookup failed; surface as 503
  }
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDependencyUnavailable is returned when a collaborator (employee
	// directory, holiday calendar, leave history) cannot be reached.
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrNotFound is returned by stores when a referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when an application status change is
	// not allowed (e.g. Rejected -> Approved).
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConcurrentModification is returned when an optimistic version check
	// on a cached balance row fails.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DependencyError records which collaborator call failed.
type DependencyError struct {
	Dependency string // e.g. "employee directory", "holiday calendar"
	Op         string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s unavailable (%s): %v", e.Dependency, e.Op, e.Err)
}

func (e *DependencyError) Unwrap() []error {
	return []error{ErrDependencyUnavailable, e.Err}
}

// Unavailable wraps err as a DependencyError. Returns nil for a nil err.
func Unavailable(dependency, op string, err error) error {
	if err == nil {
		return nil
	}
	return &DependencyError{Dependency: dependency, Op: op, Err: err}
}

// TransitionError provides details about a rejected status change.
type TransitionError struct {
	ID   string
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("application %s: cannot move from %s to %s", e.ID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification) || errors.Is(err, ErrDependencyUnavailable)
}

// IsNotFound returns true if the error indicates a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
