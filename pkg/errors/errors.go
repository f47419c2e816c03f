package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
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

// Is reports whether target carries the same code, so clones and wraps of a
// sentinel still match it.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// WrapAs wraps err using the code and status of an existing sentinel.
func WrapAs(sentinel *Error, err error, message string) *Error {
	if message == "" {
		message = sentinel.Message
	}
	return Wrap(err, sentinel.Code, sentinel.Status, message)
}

// Predefined errors for common scenarios.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	ErrCacheCorrupt = New("CACHE_CORRUPT", http.StatusInternalServerError, "cached value unreadable")

	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid operator passphrase")

	// Roster source missing or unreadable.
	ErrRosterLoad = New("ROSTER_LOAD_ERROR", http.StatusServiceUnavailable, "failed to load student roster")

	// QR payload rejections.
	ErrPayloadInsufficient = New("PAYLOAD_INSUFFICIENT_DATA", http.StatusUnprocessableEntity, "insufficient data in qr code")
	ErrPayloadMalformed    = New("PAYLOAD_MALFORMED_LINE", http.StatusUnprocessableEntity, "qr code line missing \": \" separator")
	ErrPayloadInvalid      = New("PAYLOAD_INVALID", http.StatusUnprocessableEntity, "invalid qr code payload")

	ErrSinkWrite     = New("ATTENDANCE_SINK_ERROR", http.StatusInternalServerError, "failed to append attendance row")
	ErrExport        = New("EXPORT_ERROR", http.StatusInternalServerError, "failed to export absence list")
	ErrUpload        = New("UPLOAD_ERROR", http.StatusBadGateway, "failed to upload absence list")
	ErrCaptureActive = New("CAPTURE_ACTIVE", http.StatusConflict, "capture already running")
)

// IsParseError reports whether err is one of the QR payload rejections.
func IsParseError(err error) bool {
	return errors.Is(err, ErrPayloadInsufficient) ||
		errors.Is(err, ErrPayloadMalformed) ||
		errors.Is(err, ErrPayloadInvalid)
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
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
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
