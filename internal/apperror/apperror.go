// Package apperror defines the error kinds returned by the lifecycle components.
//
// Every expected business condition is reported as an *Error carrying a Kind.
// Anything else reaching a caller is treated as an unexpected fault.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// KindValidationFailed reports malformed or missing input.
	KindValidationFailed Kind = "validation_failed"
	// KindInvalidDuration reports a requested duration outside the allowed set.
	KindInvalidDuration Kind = "invalid_duration"
	// KindCapacityExhausted reports an internship with no free seat or not accepting.
	KindCapacityExhausted Kind = "capacity_exhausted"
	// KindDuplicatePaymentReference reports a payment reference already claimed on the internship.
	KindDuplicatePaymentReference Kind = "duplicate_payment_reference"
	// KindNotAuthorized reports a caller/entity mismatch.
	KindNotAuthorized Kind = "not_authorized"
	// KindNotEligible reports unmet certificate prerequisites.
	KindNotEligible Kind = "not_eligible"
	// KindRenderingFailed reports a document rendering failure. Safe to retry.
	KindRenderingFailed Kind = "rendering_failed"
	// KindNotFound reports a missing entity.
	KindNotFound Kind = "not_found"
	// KindInvalidTransition reports a status change the state machine does not allow.
	KindInvalidTransition Kind = "invalid_transition"
	// KindInternal reports an unexpected fault.
	KindInternal Kind = "internal"
)

// Error is a kinded error with an optional cause and per-field details.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation creates a validation error carrying per-field messages.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidationFailed, Message: message, Fields: fields}
}

// Internal wraps an unexpected fault.
func Internal(message string, err error) *Error {
	return Wrap(KindInternal, message, err)
}

// KindOf returns the kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err is of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind to the HTTP status the API answers with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidationFailed, KindInvalidDuration:
		return http.StatusBadRequest
	case KindNotAuthorized:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindCapacityExhausted, KindDuplicatePaymentReference, KindInvalidTransition:
		return http.StatusConflict
	case KindNotEligible:
		return http.StatusUnprocessableEntity
	case KindRenderingFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
