package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"
)

// Error is a typed application error with HTTP awareness.
//
// Key, when set, names a translation entry that replaces Message for
// localised responses, interpolated with Params. Details carries
// field-level validation output.
type Error struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Status  int               `json:"-"`
	Key     string            `json:"-"`
	Params  map[string]string `json:"-"`
	Details string            `json:"details,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches on Code so callers can use errors.Is(err, apperrors.ErrConflict).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// WithKey returns a copy carrying a translation key.
func (e *Error) WithKey(key string) *Error {
	clone := *e
	clone.Key = key
	return &clone
}

// WithParams returns a copy carrying translation parameters.
func (e *Error) WithParams(params map[string]string) *Error {
	clone := *e
	clone.Params = params
	return &clone
}

// WithDetails returns a copy carrying validation details.
func (e *Error) WithDetails(details string) *Error {
	clone := *e
	clone.Details = details
	return &clone
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeInvalidState = "INVALID_STATE"
	CodeDuplicate    = "DUPLICATE_ENTRY"
	CodeInternal     = "INTERNAL_ERROR"
)

// Predefined errors for common scenarios.
var (
	ErrValidation   = New(CodeValidation, http.StatusBadRequest, "validation failed")
	ErrUnauthorized = New(CodeUnauthorized, http.StatusUnauthorized, "unauthorized")
	ErrForbidden    = New(CodeForbidden, http.StatusForbidden, "forbidden")
	ErrNotFound     = New(CodeNotFound, http.StatusNotFound, "resource not found")
	ErrConflict     = New(CodeConflict, http.StatusConflict, "conflict")
	ErrInvalidState = New(CodeInvalidState, http.StatusBadRequest, "invalid state transition")
	ErrDuplicate    = New(CodeDuplicate, http.StatusBadRequest, "Duplicate Entry")
	ErrInternal     = New(CodeInternal, http.StatusInternalServerError, "internal server error")
)

func Validation(message string) *Error   { return Clone(ErrValidation, message) }
func Unauthorized(message string) *Error { return Clone(ErrUnauthorized, message) }
func Forbidden(message string) *Error    { return Clone(ErrForbidden, message) }
func NotFound(message string) *Error     { return Clone(ErrNotFound, message) }
func Conflict(message string) *Error     { return Clone(ErrConflict, message) }
func InvalidState(message string) *Error { return Clone(ErrInvalidState, message) }

// Internal wraps an unexpected failure. The wrapped error text is never part of Message.
func Internal(err error) *Error {
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Wrap(err, ErrNotFound.Code, ErrNotFound.Status, ErrNotFound.Message)
	}
	if IsDuplicateKey(err) {
		return Wrap(err, ErrDuplicate.Code, ErrDuplicate.Status, ErrDuplicate.Message)
	}
	return Internal(err)
}

// IsDuplicateKey reports whether err is a unique-constraint violation from the store.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// Drivers that gorm does not translate still carry a recognisable message.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "e11000")
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
