package searchapi

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError represents an error response from the search service.
// Callers should prefer the predicate functions (IsNotFound, IsUnauthorized)
// to inspect errors rather than asserting on this type directly.
type APIError struct {
	operation  string
	statusCode int
	code       string
	message    string
}

func (e *APIError) Error() string {
	if e.code != "" {
		return fmt.Sprintf("%s: HTTP %d: [%s] %s", e.operation, e.statusCode, e.code, e.message)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.operation, e.statusCode, e.message)
}

func newAPIError(operation string, statusCode int, code, message string) *APIError {
	return &APIError{
		operation:  operation,
		statusCode: statusCode,
		code:       code,
		message:    message,
	}
}

// StatusCode returns the HTTP status code from the response.
func (e *APIError) StatusCode() int { return e.statusCode }

// Code returns the service's error code, if any.
func (e *APIError) Code() string { return e.code }

// IsNotFound reports whether err is an API error with HTTP 404 status,
// typically a missing index.
func IsNotFound(err error) bool { return HasStatusCode(err, http.StatusNotFound) }

// IsUnauthorized reports whether err is an API error with HTTP 401 or 403 status.
func IsUnauthorized(err error) bool {
	return HasStatusCode(err, http.StatusUnauthorized) || HasStatusCode(err, http.StatusForbidden)
}

// HasStatusCode reports whether err is an API error whose HTTP status code matches.
func HasStatusCode(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.statusCode == code
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
