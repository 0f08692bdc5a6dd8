package catalog

import (
	"errors"
	"fmt"
)

// Error represents a catalog service error with categorization.
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error (if any)
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Error codes for catalog operations.
const (
	// ErrCodeNoData indicates no data was found.
	ErrCodeNoData = "NO_DATA"

	// ErrCodeValidation indicates validation failed.
	ErrCodeValidation = "VALIDATION_ERROR"

	// ErrCodeNotFound indicates the requested book does not exist or is
	// no longer active.
	ErrCodeNotFound = "NOT_FOUND"

	// ErrCodeDuplicateISBN indicates another active book already holds
	// the requested ISBN.
	ErrCodeDuplicateISBN = "DUPLICATE_ISBN"

	// ErrCodeConfiguration indicates invalid configuration.
	ErrCodeConfiguration = "CONFIGURATION_ERROR"

	// ErrCodeDatabase indicates database operation failed.
	ErrCodeDatabase = "DATABASE_ERROR"

	// ErrCodePublish indicates a single publish attempt failed.
	ErrCodePublish = "PUBLISH_ERROR"

	// ErrCodeDelivery indicates notification delivery failed.
	ErrCodeDelivery = "DELIVERY_ERROR"

	// ErrCodeRetryExhausted indicates all publish retry attempts failed.
	ErrCodeRetryExhausted = "RETRY_EXHAUSTED"

	// ErrCodeRetryAborted indicates the publish retry loop was cancelled
	// before exhausting its attempts.
	ErrCodeRetryAborted = "RETRY_ABORTED"

	// ErrCodeDeserialization indicates a consumed payload could not be
	// decoded into an event envelope.
	ErrCodeDeserialization = "DESERIALIZATION_ERROR"

	// ErrCodeUnauthorized indicates missing or invalid credentials.
	ErrCodeUnauthorized = "UNAUTHORIZED"

	// ErrCodeForbidden indicates the authenticated user lacks the
	// required role.
	ErrCodeForbidden = "FORBIDDEN"
)

// Common errors.
var (
	// ErrNoData is returned when a query returns no results.
	// This is not necessarily an error condition in all cases.
	ErrNoData = &Error{
		Code:    ErrCodeNoData,
		Message: "no data found",
	}

	// ErrInvalidConfiguration is returned when service configuration is invalid.
	ErrInvalidConfiguration = &Error{
		Code:    ErrCodeConfiguration,
		Message: "invalid service configuration",
	}
)

// NewError creates a new Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// NewErrorWithCause creates a new Error wrapping an underlying error.
func NewErrorWithCause(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// CodeOf extracts the error code from err, or empty string if err is not
// a catalog error.
func CodeOf(err error) string {
	var catErr *Error
	if errors.As(err, &catErr) {
		return catErr.Code
	}
	return ""
}

func hasCode(err error, code string) bool {
	return CodeOf(err) == code
}

// IsNoData checks if an error is ErrNoData.
func IsNoData(err error) bool {
	return hasCode(err, ErrCodeNoData) || errors.Is(err, ErrNoData)
}

// IsNotFound checks if an error indicates a missing or inactive book.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsDuplicateISBN checks if an error indicates an ISBN conflict.
func IsDuplicateISBN(err error) bool {
	return hasCode(err, ErrCodeDuplicateISBN)
}

// IsValidation checks if an error indicates a validation failure.
func IsValidation(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

// IsRetryExhausted checks if an error indicates exhausted publish retries.
func IsRetryExhausted(err error) bool {
	return hasCode(err, ErrCodeRetryExhausted)
}

// IsRetryAborted checks if an error indicates a cancelled publish retry loop.
func IsRetryAborted(err error) bool {
	return hasCode(err, ErrCodeRetryAborted)
}
