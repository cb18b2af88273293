package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown        ErrorCode = "UNKNOWN"
	ErrInternal       ErrorCode = "INTERNAL"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrAlreadyExists  ErrorCode = "ALREADY_EXISTS"
	ErrNotImplemented ErrorCode = "NOT_IMPLEMENTED"

	// Remakefile errors
	ErrRemakefileLoad  ErrorCode = "REMAKEFILE_LOAD"
	ErrRemakefileParse ErrorCode = "REMAKEFILE_PARSE"
	ErrRemakefileValid ErrorCode = "REMAKEFILE_INVALID"

	// Rule errors
	ErrRuleInvalid    ErrorCode = "RULE_INVALID"
	ErrPatternInvalid ErrorCode = "PATTERN_INVALID"
	ErrNoRule         ErrorCode = "NO_RULE"
	ErrCycle          ErrorCode = "DEPENDENCY_CYCLE"

	// Builder errors
	ErrBuilderNotFound ErrorCode = "BUILDER_NOT_FOUND"
	ErrBuilderInvalid  ErrorCode = "BUILDER_INVALID"
	ErrBuilderExecute  ErrorCode = "BUILDER_EXECUTE"

	// Build errors
	ErrDepMissing         ErrorCode = "DEP_MISSING"
	ErrTargetNotCreated   ErrorCode = "TARGET_NOT_CREATED"
	ErrTargetNotDestroyed ErrorCode = "TARGET_NOT_DESTROYED"
	ErrCleanGround        ErrorCode = "CLEAN_GROUND_DEP"
)

// RemakeError represents a structured error with code and details
type RemakeError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *RemakeError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *RemakeError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *RemakeError) Is(target error) bool {
	var targetErr *RemakeError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new RemakeError with the given code and message
func New(code ErrorCode, message string) *RemakeError {
	return &RemakeError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new RemakeError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *RemakeError {
	return &RemakeError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a RemakeError
func Wrap(err error, code ErrorCode, message string) *RemakeError {
	if err == nil {
		return nil
	}
	return &RemakeError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *RemakeError {
	if err == nil {
		return nil
	}
	return &RemakeError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *RemakeError) WithDetail(key string, value interface{}) *RemakeError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var remakeErr *RemakeError
	if errors.As(err, &remakeErr) {
		return remakeErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a RemakeError
func GetErrorCode(err error) ErrorCode {
	var remakeErr *RemakeError
	if errors.As(err, &remakeErr) {
		return remakeErr.Code
	}
	return ErrUnknown
}
