// Package errors provides structured error types for EventSphere.
// Every error carries a category and a code so transports can map failures
// to status codes without string matching. Nothing in the system retries:
// every error is terminal for the call that produced it.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by the kind of failure.
type ErrorCategory string

const (
	ErrCategoryValidation   ErrorCategory = "VALIDATION"
	ErrCategoryNotFound     ErrorCategory = "NOT_FOUND"
	ErrCategoryUnauthorized ErrorCategory = "UNAUTHORIZED"
	ErrCategoryConflict     ErrorCategory = "CONFLICT"
	ErrCategoryInventory    ErrorCategory = "INVENTORY"
	ErrCategoryStorage      ErrorCategory = "STORAGE"
	ErrCategoryInternal     ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Validation codes
	CodeEmptyField    = "EMPTY_FIELD"
	CodeInvalidCount  = "INVALID_COUNT"
	CodeInvalidDate   = "DATE_PARSE_ERROR"
	CodeInvalidRole   = "INVALID_ROLE"
	CodeInvalidTicket = "INVALID_TICKET_TYPE"
	CodeInvalidID     = "INVALID_ID"
	CodeMalformedBody = "MALFORMED_BODY"

	// Not found codes
	CodeEventNotFound  = "EVENT_NOT_FOUND"
	CodeUserNotFound   = "USER_NOT_FOUND"
	CodeTicketNotFound = "TICKET_NOT_FOUND"

	// Unauthorized codes
	CodeIncorrectPassword      = "INCORRECT_PASSWORD"
	CodeInsufficientPrivileges = "INSUFFICIENT_PRIVILEGES"

	// Conflict codes
	CodeUsernameTaken = "USERNAME_TAKEN"
	CodeStoreNotEmpty = "STORE_NOT_EMPTY"

	// Inventory codes
	CodeInsufficientInventory = "INSUFFICIENT_INVENTORY"

	// Storage codes
	CodeSerialization  = "SERIALIZATION"
	CodeBackend        = "BACKEND"
	CodeCorruption     = "CORRUPTION_DETECTED"
	CodeLayoutMismatch = "COUNTER_LAYOUT_MISMATCH"

	// Internal codes
	CodeConsistency = "CONSISTENCY"
	CodeUnexpected  = "UNEXPECTED"
)

// Error is the structured error type used throughout the system.
type Error struct {
	Category ErrorCategory
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
}

// Error returns a formatted error string.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new Error.
func New(category ErrorCategory, code, message string) *Error {
	return &Error{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// Newf creates a new Error with a formatted message.
func Newf(category ErrorCategory, code, format string, args ...interface{}) *Error {
	return New(category, code, fmt.Sprintf(format, args...))
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *Error {
	return &Error{
		Category: category,
		Code:     code,
		Message:  message,
		Cause:    cause,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not an *Error.
func GetCategory(err error) ErrorCategory {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not an *Error.
func GetCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func IsValidation(err error) bool   { return GetCategory(err) == ErrCategoryValidation }
func IsNotFound(err error) bool     { return GetCategory(err) == ErrCategoryNotFound }
func IsUnauthorized(err error) bool { return GetCategory(err) == ErrCategoryUnauthorized }
func IsConflict(err error) bool     { return GetCategory(err) == ErrCategoryConflict }

// IsInsufficientInventory reports whether a purchase was refused for lack of seats.
func IsInsufficientInventory(err error) bool {
	return GetCode(err) == CodeInsufficientInventory
}

// IsConsistency reports whether err signals a broken internal invariant.
// Such errors indicate a defect, never a caller mistake.
func IsConsistency(err error) bool {
	return GetCategory(err) == ErrCategoryInternal && GetCode(err) == CodeConsistency
}

// IsSerialization reports whether a record failed to encode or decode.
func IsSerialization(err error) bool {
	return GetCategory(err) == ErrCategoryStorage && GetCode(err) == CodeSerialization
}

// Convenience constructors for common errors.

func NewValidationError(code, message string) *Error {
	return New(ErrCategoryValidation, code, message)
}

func NewNotFoundError(code, message string) *Error {
	return New(ErrCategoryNotFound, code, message)
}

func NewUnauthorizedError(code, message string) *Error {
	return New(ErrCategoryUnauthorized, code, message)
}

func NewConflictError(code, message string) *Error {
	return New(ErrCategoryConflict, code, message)
}

func NewInventoryError(message string) *Error {
	return New(ErrCategoryInventory, CodeInsufficientInventory, message)
}

func NewStorageError(code, message string, cause error) *Error {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewConsistencyError(message string) *Error {
	return New(ErrCategoryInternal, CodeConsistency, message)
}

func NewInternalError(message string, cause error) *Error {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
