// Package shared contains common domain types and errors used across all
// domain packages. This package has zero external dependencies.
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

	// Validation errors
	ErrValidation   = errors.New("validation error")
	ErrInvalidID    = errors.New("invalid ID")
	ErrInvalidInput = errors.New("invalid input")

	// Business rule errors. Returned when a request is well formed but the
	// current state does not allow it.
	ErrBusinessRule = errors.New("business rule violation")

	// Authorization errors
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidSignature = errors.New("invalid signature")

	// Persistence errors
	ErrConstraintViolation = errors.New("constraint violation")

	// Concurrency errors
	ErrInProgress = errors.New("operation already in progress")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progress", "course", "subscription"
	Op      string // Operation that failed, e.g., "ConsumeHeart"
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

// Identity errors
var (
	ErrUnauthenticated = NewDomainError("identity", "Resolve", ErrUnauthorized, "Unauthorized")
)

// Course domain errors
var (
	ErrCourseNotFound    = NewDomainError("course", "Find", ErrNotFound, "Course not found")
	ErrLessonNotFound    = NewDomainError("course", "FindLesson", ErrNotFound, "Lesson not found")
	ErrChallengeNotFound = NewDomainError("course", "FindChallenge", ErrNotFound, "Challenge not found")
	ErrInvalidContent    = NewDomainError("course", "Import", ErrValidation, "invalid course content")
)

// Progress domain errors
var (
	ErrUserProgressNotFound = NewDomainError("progress", "Find", ErrNotFound, "User progress not found")
	ErrHeartsFull           = NewDomainError("progress", "RefillHearts", ErrBusinessRule, "Hearts are already full")
	ErrNotEnoughPoints      = NewDomainError("progress", "RefillHearts", ErrBusinessRule, "Not enough points")
)

// Subscription domain errors
var (
	ErrSubscriptionNotFound   = NewDomainError("subscription", "Find", ErrNotFound, "subscription not found")
	ErrInvalidEventSignature  = NewDomainError("subscription", "VerifyEvent", ErrInvalidSignature, "webhook signature verification failed")
	ErrPaymentProviderFailed  = NewDomainError("subscription", "FetchSubscription", ErrExternalService, "payment provider request failed")
	ErrEventAlreadyInProgress = NewDomainError("subscription", "ProcessEvent", ErrInProgress, "event is being processed by another delivery")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput)
}

// IsBusinessRule checks if the error is a business rule rejection.
func IsBusinessRule(err error) bool {
	return errors.Is(err, ErrBusinessRule)
}

// IsUnauthorized checks if the error is an authentication failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsConstraintViolation checks if the error is a storage integrity violation.
func IsConstraintViolation(err error) bool {
	return errors.Is(err, ErrConstraintViolation)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
