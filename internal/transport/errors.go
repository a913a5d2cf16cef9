package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrorCode is a machine-readable classification of a failed call.
type ErrorCode string

const (
	// ErrBadRequest indicates a malformed request (HTTP 400).
	ErrBadRequest ErrorCode = "bad_request"
	// ErrUnauthorized indicates authentication is required or failed (HTTP 401).
	ErrUnauthorized ErrorCode = "unauthorized"
	// ErrForbidden indicates the user lacks permission (HTTP 403).
	ErrForbidden ErrorCode = "forbidden"
	// ErrNotFound indicates the requested resource does not exist (HTTP 404).
	ErrNotFound ErrorCode = "not_found"
	// ErrConflict indicates a conflict with current state (HTTP 409).
	ErrConflict ErrorCode = "conflict"
	// ErrValidation indicates input validation failed (HTTP 422).
	ErrValidation ErrorCode = "validation_failed"
	// ErrRateLimited indicates too many requests (HTTP 429).
	ErrRateLimited ErrorCode = "rate_limited"
	// ErrServerError indicates an internal server error (HTTP 5xx).
	ErrServerError ErrorCode = "server_error"
	// ErrTimeout indicates the request exceeded the configured timeout.
	ErrTimeout ErrorCode = "timeout"
	// ErrNetwork indicates no response reached the client.
	ErrNetwork ErrorCode = "network"
	// ErrUnknown indicates an unknown or unclassified error.
	ErrUnknown ErrorCode = "unknown"
)

// ErrorCodeFromStatus maps an HTTP status code to an ErrorCode.
func ErrorCodeFromStatus(statusCode int) ErrorCode {
	switch statusCode {
	case 400:
		return ErrBadRequest
	case 401:
		return ErrUnauthorized
	case 403:
		return ErrForbidden
	case 404:
		return ErrNotFound
	case 409:
		return ErrConflict
	case 422:
		return ErrValidation
	case 429:
		return ErrRateLimited
	default:
		if statusCode >= 500 && statusCode < 600 {
			return ErrServerError
		}
		return ErrUnknown
	}
}

// Error is the structured failure every transport returns. Status is zero
// when no response reached the client.
type Error struct {
	Message   string
	Status    int
	Data      any
	Code      ErrorCode
	RequestID string
	Err       error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	if e, ok := AsError(err); ok {
		return e.Status
	}
	return 0
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// IsUnauthorized checks if the backend rejected the credential.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// httpError builds the error for a non-2xx response.
func httpError(status int, data any, requestID string) *Error {
	return &Error{
		Message:   messageFromBody(data, status),
		Status:    status,
		Data:      data,
		Code:      ErrorCodeFromStatus(status),
		RequestID: requestID,
	}
}

// networkError builds the error for a request that never got a response.
func networkError(ctx context.Context, err error) *Error {
	code := ErrNetwork
	msg := "network request failed"
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		code, msg = ErrTimeout, "request timed out"
	case errors.As(err, &netErr) && netErr.Timeout():
		code, msg = ErrTimeout, "request timed out"
	case errors.Is(err, context.Canceled):
		msg = "request cancelled"
	}
	return &Error{Message: msg, Code: code, Err: err}
}

// messageFromBody extracts a safe message from a decoded error body without
// echoing arbitrary payloads back to the user.
func messageFromBody(data any, status int) string {
	if m, ok := data.(map[string]any); ok {
		for _, key := range []string{"message", "error"} {
			if s, ok := m[key].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "API request failed"
}

// NormalizeError is the permissive default ErrorMapper. It guarantees the
// returned value is a *Error with Code populated, keeping Status and Data
// from the original when present.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}
	if e, ok := AsError(err); ok {
		out := *e
		if out.Code == "" {
			if out.Status == 0 {
				out.Code = ErrNetwork
			} else {
				out.Code = ErrorCodeFromStatus(out.Status)
			}
		}
		if out.Message == "" {
			out.Message = messageFromBody(out.Data, out.Status)
		}
		return &out
	}
	return &Error{Message: err.Error(), Code: ErrUnknown, Err: err}
}
