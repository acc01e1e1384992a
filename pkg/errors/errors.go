package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the kinds of failure the pipelines distinguish
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeHTTPStatus  ErrorType = "http_status"
	ErrorTypeContentType ErrorType = "content_type"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeImage       ErrorType = "image"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error carries a failure category alongside the message and, for HTTP
// failures, the status code.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error
func New(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Wrap creates a typed error around a cause
func Wrap(t ErrorType, err error, message string) *Error {
	return &Error{Type: t, Message: fmt.Sprintf("%s: %v", message, err), Err: err}
}

// TypeOf returns the ErrorType of the first *Error in err's chain
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err's chain holds an *Error of the given type
func IsType(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// IsRetryable checks if an error type is worth another attempt. Image and
// not-found failures are retryable because the next attempt uses a different
// search candidate.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeImage, ErrorTypeNotFound:
		return true
	case ErrorTypeHTTPStatus:
		return true
	case ErrorTypeContentType, ErrorTypeParsing:
		return false
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a transient error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0, 429:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
