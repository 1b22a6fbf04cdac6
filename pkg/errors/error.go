// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Invalid configuration, duplicate or unknown names
//   - Data/Resource errors (200-299): Missing data, missing fields, query failures
//   - Strategy errors (400-499): Strategy loading, configuration, and runtime errors
//   - Trading errors (500-599): Order rejection, expiry, hook and FX failures
//   - Backtest errors (600-699): Run setup, cancellation and result export errors
//   - Callback errors (800-899): Lifecycle callback failures
//
// A run distinguishes recoverable per-order outcomes (ErrCodeOrderRejected,
// ErrCodeOrderExpired), which are recorded on the order and never returned to the
// caller, from fatal errors (configuration, missing fields, strategy and hook
// failures), which abort the run.
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvalidConfiguration, "no books configured")
//
//	// Create a formatted error
//	err := errors.Newf(errors.ErrCodeDuplicateAsset, "duplicate asset %s", name)
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeStrategyRuntimeError, "on_close failed", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeMissingField) { ... }
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode of the outermost *Error in the chain.
// A bare *MissingFieldError reports ErrCodeMissingField. Returns ErrCodeUnknown otherwise.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	var missing *MissingFieldError
	if errors.As(err, &missing) {
		return ErrCodeMissingField
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsConfigurationError reports whether err was raised while validating a run setup.
func IsConfigurationError(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidConfiguration, ErrCodeBacktestConfigError, ErrCodeDuplicateAsset,
		ErrCodeDuplicateBook, ErrCodeDuplicateStrategy, ErrCodeUnknownAsset, ErrCodeUnknownBook,
		ErrCodeInvalidVersion, ErrCodeVersionMismatch:
		return true
	default:
		return false
	}
}

// IsStrategyError reports whether err originated in a strategy callback.
func IsStrategyError(err error) bool {
	return HasCode(err, ErrCodeStrategyRuntimeError)
}

// MissingFieldError is returned when a required price field is absent or null
// at the moment it is needed.
type MissingFieldError struct {
	Asset     string    // Asset whose field is missing
	Field     string    // Field name
	Timestamp time.Time // Timestamp at which the value was needed
	Message   string    // Human-readable message
}

// NewMissingFieldError creates a new MissingFieldError.
func NewMissingFieldError(asset, field string, timestamp time.Time) *MissingFieldError {
	return &MissingFieldError{
		Asset:     asset,
		Field:     field,
		Timestamp: timestamp,
		Message:   fmt.Sprintf("field %s of asset %s is missing at %s", field, asset, timestamp.Format(time.RFC3339)),
	}
}

// Error implements the error interface.
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("[%d] %s", ErrCodeMissingField, e.Message)
}

// IsMissingFieldError checks if an error is a MissingFieldError.
// It uses errors.As to check the error chain.
func IsMissingFieldError(err error) bool {
	var missingErr *MissingFieldError

	return errors.As(err, &missingErr)
}
