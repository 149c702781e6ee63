package bitrise

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common errors returned by the client.
var (
	// ErrNotFound means the provider reported that the resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUpstreamUnavailable means the provider was unreachable or kept
	// failing after retries were exhausted.
	ErrUpstreamUnavailable = errors.New("CI provider unavailable")
)

// Error is a non-2xx response from the provider.
type Error struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Unwrap maps the status code onto the client's sentinel errors so callers
// can use errors.Is.
func (e *Error) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode >= 500:
		return ErrUpstreamUnavailable
	default:
		return nil
	}
}

// HTTPStatusCode returns the provider's status code.
func (e *Error) HTTPStatusCode() int {
	return e.StatusCode
}

// newError builds an Error from a response body, preferring the provider's
// "message" or "error_msg" field over the raw body.
func newError(status int, body []byte) *Error {
	msg := strings.TrimSpace(string(body))
	var payload struct {
		Message  string `json:"message"`
		ErrorMsg string `json:"error_msg"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Message != "":
			msg = payload.Message
		case payload.ErrorMsg != "":
			msg = payload.ErrorMsg
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &Error{StatusCode: status, Message: msg}
}
