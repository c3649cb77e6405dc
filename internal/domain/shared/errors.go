// Package shared contains common domain types, errors and events
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Workflow errors
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrStateTransition    = errors.New("invalid state transition")

	// Collaborator errors
	ErrPersistence        = errors.New("persistence failure")
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrValidationGap marks input that is known to be unvalidated upstream.
	// It is reported, never enforced.
	ErrValidationGap = errors.New("unvalidated input")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "course", "enrollment", "certificate"
	Op      string // Operation that failed, e.g., "Enroll", "Complete"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Course domain errors
var (
	ErrCourseNotFound          = NewDomainError("course", "Find", ErrNotFound, "course not found")
	ErrRejectionReasonRequired = NewDomainError("course", "Reject", ErrInvalidEntity, "rejection reason is required")
)

// Enrollment domain errors
var (
	ErrEnrollmentNotFound  = NewDomainError("enrollment", "Find", ErrNotFound, "enrollment not found")
	ErrPaymentNotCompleted = NewDomainError("enrollment", "Enroll", ErrPreconditionFailed, "payment is not completed")
	ErrAlreadyEnrolled     = NewDomainError("enrollment", "Enroll", ErrPreconditionFailed, "already enrolled in course")
)

// Certificate domain errors
var (
	ErrNotEligible = NewDomainError("certificate", "Issue", ErrPreconditionFailed, "not eligible for certificate")
)

// Payment domain errors
var (
	ErrNonPositiveAmount = NewDomainError("payment", "Process", ErrValidationGap, "payment amount is not positive")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPreconditionFailed checks if the error is a failed workflow precondition.
func IsPreconditionFailed(err error) bool {
	return errors.Is(err, ErrPreconditionFailed)
}

// IsPersistence checks if the error came from a persistence collaborator.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable)
}
