// Package errors maps failures onto HTTP statuses and structured responses.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/narvanalabs/redbutton/internal/auth"
	"github.com/narvanalabs/redbutton/internal/bitrise"
)

// Error codes for structured responses.
const (
	CodeValidationError     = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeUpstreamError       = "UPSTREAM_ERROR"
	CodeInternalError       = "INTERNAL_ERROR"
)

// APIError represents a structured error response.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	// status overrides the code's default status, e.g. for provider errors.
	status int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithRequestID returns a copy of the error with the request ID set.
func (e *APIError) WithRequestID(requestID string) *APIError {
	cp := *e
	cp.RequestID = requestID
	return &cp
}

// New creates a new APIError with the given code and message.
func New(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *APIError {
	return New(CodeValidationError, message)
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *APIError {
	return New(CodeNotFound, message)
}

// NewUnauthorizedError creates an unauthorized error.
func NewUnauthorizedError(message string) *APIError {
	return New(CodeUnauthorized, message)
}

// NewUpstreamUnavailableError creates an error for an unreachable CI provider.
func NewUpstreamUnavailableError(message string) *APIError {
	return New(CodeUpstreamUnavailable, message)
}

// NewInternalError creates an internal server error.
func NewInternalError(message string) *APIError {
	return New(CodeInternalError, message)
}

// HTTPStatusCode returns the appropriate HTTP status code for the error.
func (e *APIError) HTTPStatusCode() int {
	if e.status != 0 {
		return e.status
	}
	switch e.Code {
	case CodeValidationError:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeUpstreamUnavailable, CodeUpstreamError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// statusCoder is implemented by errors that carry their own HTTP status.
type statusCoder interface {
	HTTPStatusCode() int
}

// FromError classifies err. Unknown errors become internal errors whose
// message does not leak err's text.
func FromError(err error) *APIError {
	var apiErr *APIError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, auth.ErrUnauthorized):
		return NewUnauthorizedError("Please sign in with an allowed account")
	case errors.Is(err, bitrise.ErrNotFound):
		return NewNotFoundError("Build not found")
	case errors.Is(err, bitrise.ErrUpstreamUnavailable):
		return NewUpstreamUnavailableError("The CI provider is unavailable, try again shortly")
	}

	// A provider 4xx that is neither 404 nor 429 keeps its status.
	var sc statusCoder
	if errors.As(err, &sc) && sc.HTTPStatusCode() >= 400 && sc.HTTPStatusCode() < 500 {
		e := New(CodeUpstreamError, "The CI provider rejected the request")
		e.status = sc.HTTPStatusCode()
		return e
	}
	return NewInternalError("An unexpected error occurred")
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes an APIError as a JSON response.
func WriteError(w http.ResponseWriter, err *APIError) {
	WriteJSON(w, err.HTTPStatusCode(), err)
}
