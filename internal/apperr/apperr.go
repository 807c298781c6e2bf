package apperr

import (
	"errors"
	"net/http"
)

// Error is an application error that carries the HTTP status code it
// should surface as. Services return these for expected failures;
// anything else maps to 500.
type Error struct {
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	return e.Message
}

func NotFound(message string) *Error {
	return &Error{Message: message, StatusCode: http.StatusNotFound}
}

func Forbidden(message string) *Error {
	return &Error{Message: message, StatusCode: http.StatusForbidden}
}

func InvalidArgument(message string) *Error {
	return &Error{Message: message, StatusCode: http.StatusBadRequest}
}

func Conflict(message string) *Error {
	return &Error{Message: message, StatusCode: http.StatusConflict}
}

func Internal(message string) *Error {
	return &Error{Message: message, StatusCode: http.StatusInternalServerError}
}

// StatusCode unwraps err and returns the embedded status code,
// defaulting to 500 for unrecognized errors.
func StatusCode(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsStatus reports whether err resolves to the given status code.
func IsStatus(err error, code int) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.StatusCode == code
}
