package cargoqueue

import (
	"errors"
	"fmt"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Error represents a cargo-queue error with categorization.
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

// Error codes for queue and topic operations.
const (
	// ErrCodeValidation indicates bad or missing input.
	ErrCodeValidation = "VALIDATION_ERROR"

	// ErrCodeConflict indicates a uniqueness violation (queue name/slug, topic name).
	ErrCodeConflict = "CONFLICT"

	// ErrCodeNotFound indicates a referenced entity is absent.
	ErrCodeNotFound = "NOT_FOUND"

	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal = "INTERNAL"

	// ErrCodeDatabase indicates a storage operation failed.
	ErrCodeDatabase = "DATABASE_ERROR"

	// ErrCodeConfiguration indicates invalid configuration.
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
)

// Common errors.
var (
	// ErrQueueNameTaken is returned when a queue name or its slug is already in use.
	ErrQueueNameTaken = &Error{
		Code:    ErrCodeConflict,
		Message: "A queue with this name already exists",
	}

	// ErrMessageNotFound is returned when a message id does not resolve.
	ErrMessageNotFound = &Error{
		Code:    ErrCodeNotFound,
		Message: "Message not found",
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

// CodeOf returns the code of the outermost *Error in err's chain,
// or ErrCodeInternal for any other non-nil error.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var cqErr *Error
	if errors.As(err, &cqErr) {
		return cqErr.Code
	}
	return ErrCodeInternal
}

// MessageOf returns the human-readable message of the outermost *Error in err's chain.
// Returns an empty string when err carries no *Error.
func MessageOf(err error) string {
	var cqErr *Error
	if errors.As(err, &cqErr) {
		return cqErr.Message
	}
	return ""
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return CodeOf(err) == ErrCodeValidation
}

// IsConflict checks if an error is a uniqueness conflict.
func IsConflict(err error) bool {
	return CodeOf(err) == ErrCodeConflict
}

// IsNotFound checks if an error reports an absent entity.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

func databaseError(op string, err error) *Error {
	return NewErrorWithCause(ErrCodeDatabase, op, err)
}

// ErrClaimContended is returned by MessageRepository.ClaimOldestUnprocessed when
// the selected message was claimed or acknowledged by someone else between the
// read and the compare-and-set.
var ErrClaimContended = &Error{
	Code:    ErrCodeInternal,
	Message: "claim lost to a concurrent consumer",
}

// NewValidationError converts an ozzo-validation result into a Validation error whose
// message is the first failing rule's message, taken in field-name order.
func NewValidationError(err error) *Error {
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		keys := make([]string, 0, len(fieldErrs))
		for k := range fieldErrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if fieldErrs[k] != nil {
				return NewErrorWithCause(ErrCodeValidation, fieldErrs[k].Error(), err)
			}
		}
	}
	return NewErrorWithCause(ErrCodeValidation, err.Error(), err)
}
