// Package apierror defines the failure kinds shared by DNS providers and the
// public IP retriever.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbidden            = errors.New("forbidden")
	ErrRateLimited          = errors.New("rate limit exceeded")
	ErrNotFound             = errors.New("not found")
	ErrBadRequest           = errors.New("bad request")
	ErrUnexpectedResponse   = errors.New("unexpected provider response")
	ErrUpstreamTimeout      = errors.New("upstream timeout")
)

// Details is the diagnostic part of a provider error envelope.
type Details struct {
	Code      string
	Message   string
	RequestID string
}

// Error is a failed provider call. Kind is one of the sentinel errors above,
// so callers can match with errors.Is.
type Error struct {
	Kind       error
	StatusCode int
	Status     string
	Details
	Body  []byte
	Cause error
}

func (e *Error) Error() string {
	var b strings.Builder
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	b.WriteString(msg)
	if e.RequestID != "" {
		fmt.Fprintf(&b, " (request id: %s)", e.RequestID)
	}
	if e.StatusCode != 0 {
		status := e.Status
		if status == "" {
			status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
		}
		fmt.Fprintf(&b, " (%s)", status)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// KindForStatus maps an HTTP status code to a failure kind.
func KindForStatus(code int) error {
	switch code {
	case http.StatusUnauthorized:
		return ErrAuthenticationFailed
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return ErrUnexpectedResponse
	}
}

// Check returns nil when statusCode is one of success, otherwise an *Error
// classified by KindForStatus.
func Check(statusCode int, status string, details Details, body []byte, success ...int) error {
	for _, s := range success {
		if statusCode == s {
			return nil
		}
	}
	return &Error{
		Kind:       KindForStatus(statusCode),
		StatusCode: statusCode,
		Status:     status,
		Details:    details,
		Body:       body,
	}
}

// NotFound builds a logical not-found failure that has no HTTP status.
func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Details: Details{Message: fmt.Sprintf(format, args...)}}
}

// BadRequest builds an input validation failure.
func BadRequest(format string, args ...any) error {
	return &Error{Kind: ErrBadRequest, Details: Details{Message: fmt.Sprintf(format, args...)}}
}
