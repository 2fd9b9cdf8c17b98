// Package errors provides structured error types for the mnybridge codec.
// All errors include a category, code, message, and retryable flag for
// consistent error handling across components.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryFormat   ErrorCategory = "FORMAT"
	ErrCategoryCrypto   ErrorCategory = "CRYPTO"
	ErrCategoryCatalog  ErrorCategory = "CATALOG"
	ErrCategoryPage     ErrorCategory = "PAGE"
	ErrCategoryStorage  ErrorCategory = "STORAGE"
	ErrCategoryInternal ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Format codes
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeInvalidFormat     = "INVALID_FORMAT"

	// Crypto codes
	CodeBadPassword = "BAD_PASSWORD"
	CodeEmptyKey    = "EMPTY_KEY"

	// Catalog codes
	CodeTableNotFound   = "TABLE_NOT_FOUND"
	CodeAccountNotFound = "ACCOUNT_NOT_FOUND"

	// Page codes
	CodeOutOfSpace = "OUT_OF_SPACE"
	CodeRowTooBig  = "ROW_TOO_BIG"

	// Storage codes
	CodeFetchFailed = "FETCH_FAILED"
	CodePutFailed   = "PUT_FAILED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// CodecError is the structured error type used throughout the system.
type CodecError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *CodecError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *CodecError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *CodecError) Is(target error) bool {
	var t *CodecError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new CodecError.
func New(category ErrorCategory, code, message string) *CodecError {
	return &CodecError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(code),
	}
}

// Wrap creates a new CodecError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *CodecError {
	return &CodecError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(code),
	}
}

// IsRetryable checks whether an error (or its chain) is user-correctable.
// Only a bad password qualifies: the caller may re-prompt and retry; every
// other code is fatal for the file that raised it.
func IsRetryable(err error) bool {
	var ce *CodecError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a CodecError.
func GetCode(err error) string {
	var ce *CodecError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a CodecError.
func GetCategory(err error) ErrorCategory {
	var ce *CodecError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ""
}

func isRetryable(code string) bool {
	return code == CodeBadPassword
}

// Convenience constructors, one per code.

// NewUnsupportedFormat marks a container whose shape or flags rule out the
// supported encrypted format, or a blank-password decrypt that exhausted all
// candidates.
func NewUnsupportedFormat(message string) *CodecError {
	return New(ErrCategoryFormat, CodeUnsupportedFormat, message)
}

// NewInvalidFormat marks a structural inconsistency detected mid-parse.
func NewInvalidFormat(message string) *CodecError {
	return New(ErrCategoryFormat, CodeInvalidFormat, message)
}

// NewBadPassword marks a decrypt that exhausted all candidates with a
// password supplied.
func NewBadPassword(message string) *CodecError {
	return New(ErrCategoryCrypto, CodeBadPassword, message)
}

// NewTableNotFound marks a catalog miss.
func NewTableNotFound(table string) *CodecError {
	return New(ErrCategoryCatalog, CodeTableNotFound, fmt.Sprintf("table %q not found", table))
}

// NewAccountNotFound marks a lookup of an account handle no row carries.
func NewAccountNotFound(id int32) *CodecError {
	return New(ErrCategoryCatalog, CodeAccountNotFound, fmt.Sprintf("account %d not found", id))
}

// NewOutOfSpace marks an append for which no existing data page has room.
func NewOutOfSpace(table string, needed int) *CodecError {
	return New(ErrCategoryPage, CodeOutOfSpace,
		fmt.Sprintf("no data page of table %q has %d free bytes", table, needed))
}

// NewStorageError wraps a remote file store failure.
func NewStorageError(code, message string, cause error) *CodecError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(message string, cause error) *CodecError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
