package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"
)

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Temporary reports whether retrying later could succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// ErrUnavailable means the circuit breaker is refusing calls.
var ErrUnavailable = errors.New("server temporarily unavailable")

// IsUnavailable reports whether err came from an open circuit breaker.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests)
}

// UserMessage turns an API error into the short text shown under the composer.
func UserMessage(err error) string {
	var serr *StatusError
	switch {
	case err == nil:
		return ""
	case IsUnavailable(err):
		return "Server unavailable. Try again in a moment."
	case errors.As(err, &serr) && serr.StatusCode == http.StatusRequestEntityTooLarge:
		return "The server refused the file: it is too large."
	case errors.As(err, &serr) && serr.StatusCode < 500:
		return fmt.Sprintf("The server rejected the message (%d).", serr.StatusCode)
	default:
		return "Error sending message. Please try again."
	}
}

// IsUnauthorized reports whether the server rejected the profile's token.
func IsUnauthorized(err error) bool {
	var serr *StatusError
	return errors.As(err, &serr) &&
		(serr.StatusCode == http.StatusUnauthorized || serr.StatusCode == http.StatusForbidden)
}
