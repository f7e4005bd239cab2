package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// ErrorType is the kind of failure surfaced to callers.
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "VALIDATION"
	ErrorTypeNotFound    ErrorType = "NOT_FOUND"
	ErrorTypeConflict    ErrorType = "CONFLICT"
	ErrorTypeForbidden   ErrorType = "FORBIDDEN"
	ErrorTypeInternal    ErrorType = "INTERNAL"
	ErrorTypeTimeout     ErrorType = "TIMEOUT"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"
	ErrorTypeStorage     ErrorType = "STORAGE"
	ErrorTypeNetwork     ErrorType = "NETWORK"
	ErrorTypeExternal    ErrorType = "EXTERNAL"
)

// statusByType maps each kind to its HTTP status. Storage faults that
// outlive the retry budget are plain 500s.
var statusByType = map[ErrorType]int{
	ErrorTypeValidation:  http.StatusBadRequest,
	ErrorTypeNotFound:    http.StatusNotFound,
	ErrorTypeConflict:    http.StatusConflict,
	ErrorTypeForbidden:   http.StatusForbidden,
	ErrorTypeInternal:    http.StatusInternalServerError,
	ErrorTypeTimeout:     http.StatusGatewayTimeout,
	ErrorTypeUnavailable: http.StatusServiceUnavailable,
	ErrorTypeStorage:     http.StatusInternalServerError,
	ErrorTypeNetwork:     http.StatusBadGateway,
	ErrorTypeExternal:    http.StatusBadGateway,
}

// TypeForStatus is the inverse of Status for responses produced without an
// AppError, such as router 404s.
func TypeForStatus(status int) ErrorType {
	switch status {
	case http.StatusBadRequest, http.StatusMethodNotAllowed, http.StatusRequestEntityTooLarge:
		return ErrorTypeValidation
	case http.StatusNotFound:
		return ErrorTypeNotFound
	case http.StatusConflict:
		return ErrorTypeConflict
	case http.StatusForbidden:
		return ErrorTypeForbidden
	case http.StatusGatewayTimeout:
		return ErrorTypeTimeout
	case http.StatusServiceUnavailable:
		return ErrorTypeUnavailable
	case http.StatusBadGateway:
		return ErrorTypeExternal
	default:
		return ErrorTypeInternal
	}
}

// Machine readable codes attached to specific failures.
const (
	CodeWorldNotFound        = "WORLD_NOT_FOUND"
	CodeTimelineNotFound     = "TIMELINE_NOT_FOUND"
	CodePackageNotFound      = "PACKAGE_NOT_FOUND"
	CodeArchiveEntryNotFound = "ARCHIVE_ENTRY_NOT_FOUND"
	CodeMergeNotFound        = "MERGE_NOT_FOUND"
	CodeNothingToReflect     = "NOTHING_TO_REFLECT"
	CodePackageNameTaken     = "PACKAGE_NAME_TAKEN"
	CodePackageRevoked       = "PACKAGE_REVOKED"
	CodeInvalidWarmth        = "INVALID_WARMTH"
	CodeCorruptPackage       = "CORRUPT_PACKAGE"
	CodeForestViolation      = "FOREST_VIOLATION"
	CodeTransactionTooLarge  = "TRANSACTION_TOO_LARGE"
)

// AppError is a classified failure. Type decides the HTTP status; Code
// narrows it for clients that branch on specific failures.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
	Retryable  bool                   `json:"-"`
}

func newError(t ErrorType, message string, cause error) *AppError {
	return &AppError{Type: t, Message: message, Cause: cause, StackTrace: captureStackTrace()}
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Status returns the HTTP status for the error's type.
func (e *AppError) Status() int {
	if s, ok := statusByType[e.Type]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// AsRetryable marks the error as a transient fault eligible for local retry.
func (e *AppError) AsRetryable() *AppError {
	e.Retryable = true
	return e
}

func captureStackTrace() string {
	var pcs [24]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			return b.String()
		}
	}
}

func NewValidationError(message string) *AppError {
	return newError(ErrorTypeValidation, message, nil)
}

// NewNotFoundError reports an unknown resource, e.g. NewNotFoundError("world").
func NewNotFoundError(resource string) *AppError {
	return newError(ErrorTypeNotFound, resource+" not found", nil)
}

func NewConflictError(message string) *AppError {
	return newError(ErrorTypeConflict, message, nil)
}

func NewForbiddenError(message string) *AppError {
	if message == "" {
		message = "forbidden"
	}
	return newError(ErrorTypeForbidden, message, nil)
}

func NewInternalError(message string) *AppError {
	return newError(ErrorTypeInternal, message, nil)
}

func NewTimeoutError(operation string) *AppError {
	return newError(ErrorTypeTimeout, fmt.Sprintf("operation '%s' timed out", operation), nil)
}

func NewUnavailableError(service string) *AppError {
	return newError(ErrorTypeUnavailable, fmt.Sprintf("%s is unavailable", service), nil)
}

// NewStorageError wraps a backend failure. Callers mark transient ones with
// AsRetryable so the transactor retries them.
func NewStorageError(operation string, err error) *AppError {
	return newError(ErrorTypeStorage, fmt.Sprintf("storage operation '%s' failed", operation), err)
}

func NewNetworkError(message string, err error) *AppError {
	return newError(ErrorTypeNetwork, message, err)
}

func NewExternalError(service string, err error) *AppError {
	return newError(ErrorTypeExternal, fmt.Sprintf("external service '%s' error", service), err)
}

// GetAppError extracts the first AppError in err's chain.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

func HasCode(err error, code string) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Code == code
}

func IsNotFound(err error) bool   { return IsType(err, ErrorTypeNotFound) }
func IsValidation(err error) bool { return IsType(err, ErrorTypeValidation) }
func IsForbidden(err error) bool  { return IsType(err, ErrorTypeForbidden) }
func IsConflict(err error) bool   { return IsType(err, ErrorTypeConflict) }

// IsRetryable reports whether err is a transient storage fault.
func IsRetryable(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Retryable
}

// Wrap prefixes an AppError's message with context, keeping its kind.
// Anything else becomes an internal error caused by err.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr := GetAppError(err); appErr != nil {
		appErr.Message = message + ": " + appErr.Message
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}

func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
