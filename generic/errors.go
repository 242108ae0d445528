/*
errors.go - Centralized error types for the resourcing engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The aggregation packages themselves never return errors for "no data";
  these errors belong to the edges: stores, the cache and the API.

ERROR CATEGORIES:
  1. Fetch errors - upstream source failures (maskable by a stale cache)
  2. Validation errors - malformed client input at the boundary
  3. Store errors - missing records, write failures

USAGE:
  if errors.Is(err, generic.ErrFetchFailed) {
      // upstream down and nothing cached
  }

SEE ALSO:
  - cache/dashboard.go: wraps source failures in FetchError
  - api/handlers.go: maps these errors to HTTP status codes
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
	// ErrFetchFailed is returned when a source could not be read and no stale
	// cache entry was available to mask it.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrCompanyNotFound is returned when a company id is unknown to the store.
	ErrCompanyNotFound = errors.New("company not found")

	// ErrMemberNotFound is returned when a member id is unknown to the store.
	ErrMemberNotFound = errors.New("member not found")

	// ErrProjectNotFound is returned when a project id is unknown to the store.
	ErrProjectNotFound = errors.New("project not found")

	// ErrInvalidTimeRange is returned for an unknown dashboard range selector.
	ErrInvalidTimeRange = errors.New("invalid time range")

	// ErrInvalidLeaveType is returned for an unknown leave type on the write path.
	ErrInvalidLeaveType = errors.New("invalid leave type")

	// ErrInvalidInput is returned by the boundary adapter for structurally
	// broken payloads (not for bad numbers, which coerce to zero).
	ErrInvalidInput = errors.New("invalid input")

	// ErrWriteFailed is returned when a replace/insert could not be persisted.
	ErrWriteFailed = errors.New("write failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FetchError records which source failed for which company.
type FetchError struct {
	CompanyID CompanyID
	Source    string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s for company %s: %v", e.Source, e.CompanyID, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrFetchFailed, e.Err}
}

// ValidationError describes one rejected field at the boundary.
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

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrFetchFailed)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidTimeRange) ||
		errors.Is(err, ErrInvalidLeaveType)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCompanyNotFound) ||
		errors.Is(err, ErrMemberNotFound) ||
		errors.Is(err, ErrProjectNotFound)
}
