package rest

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is returned for any response with a non-2xx status.
type APIError struct {
	httpCode int
	message  string
}

// NewAPIError returns an APIError for the given status code and message.
func NewAPIError(code int, msg string) *APIError {
	return &APIError{
		httpCode: code,
		message:  msg,
	}
}

func (e *APIError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("HTTP status %d", e.httpCode)
	}
	return fmt.Sprintf("HTTP status %d (message: %q)", e.httpCode, e.message)
}

// Code returns the HTTP status code of the error.
func (e *APIError) Code() int {
	return e.httpCode
}

// Message returns the error message sent by the server, if any.
func (e *APIError) Message() string {
	return e.message
}

// IsNotFoundErr returns true if err is an APIError with a 404 status.
func IsNotFoundErr(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code() == http.StatusNotFound
	}
	return false
}

// IsForbiddenErr returns true if err is an APIError with a 403 status.
func IsForbiddenErr(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code() == http.StatusForbidden
	}
	return false
}
