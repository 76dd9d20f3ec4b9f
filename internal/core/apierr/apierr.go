// Package apierr defines the closed error taxonomy of the generation
// client and the total classifier that maps raw failures into it.
//
// Callers branch on Type, never on HTTP status codes. Exactly one variant
// is populated per instance:
//   - validation_error carries field violations
//   - rate_limit_error carries RetryAfter and LimitInfo (absent when the
//     server sent no headers, never fabricated)
//   - server_error carries ErrorCode/SuggestedAction/SupportReference
//   - network_error, timeout_error, cancelled_error carry a message only
package apierr

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Type string

const (
	TypeValidation Type = "validation_error"
	TypeRateLimit  Type = "rate_limit_error"
	TypeServer     Type = "server_error"
	TypeNetwork    Type = "network_error"
	TypeTimeout    Type = "timeout_error"
	TypeCancelled  Type = "cancelled_error"
)

// ErrAttemptTimeout is the cancellation cause attached to an attempt
// context whose per-attempt timer fired. Distinguishes timeout_error from
// cancelled_error when both abort the same underlying call.
var ErrAttemptTimeout = errors.New("attempt timeout")

// FieldViolation names one invalid request field.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// LimitInfo mirrors the server's rate-limit headers. Pointer fields stay
// nil when the corresponding header was missing.
type LimitInfo struct {
	Limit     *int       `json:"limit,omitempty"`
	Remaining *int       `json:"remaining,omitempty"`
	ResetTime *time.Time `json:"reset_time,omitempty"`
}

// Error is the single caller-facing error value of the client.
type Error struct {
	Type    Type   `json:"type"`
	Message string `json:"message"`

	// validation_error
	Fields []FieldViolation `json:"fields,omitempty"`

	// rate_limit_error
	RetryAfter *time.Duration `json:"retry_after,omitempty"`
	Limit      *LimitInfo     `json:"limit_info,omitempty"`

	// server_error
	ErrorCode        string `json:"error_code,omitempty"`
	SuggestedAction  string `json:"suggested_action,omitempty"`
	SupportReference string `json:"support_reference,omitempty"`

	cause error
}

func (e *Error) Error() string {
	switch e.Type {
	case TypeValidation:
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
		}
		return fmt.Sprintf("%s: %s", e.Type, strings.Join(parts, "; "))
	case TypeServer:
		return fmt.Sprintf("%s: %s (code=%s)", e.Type, e.Message, e.ErrorCode)
	default:
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Retryable reports whether the variant is eligible for retry by policy.
// rate_limit_error is conditionally retryable; the retry controller also
// checks RetryAfter bounds.
func (e *Error) Retryable() bool {
	switch e.Type {
	case TypeNetwork, TypeTimeout:
		return true
	case TypeServer:
		return e.TransientServer()
	case TypeRateLimit:
		return e.RetryAfter != nil
	}
	return false
}

// TransientServer reports whether a server_error represents a transient
// condition worth retrying (gateway-style failures, or an explicit retry
// suggestion from the server).
func (e *Error) TransientServer() bool {
	if e.Type != TypeServer {
		return false
	}
	switch e.ErrorCode {
	case "HTTP_502", "HTTP_503", "HTTP_504":
		return true
	}
	return strings.Contains(strings.ToLower(e.SuggestedAction), "retry")
}

func Validation(fields []FieldViolation) *Error {
	return &Error{Type: TypeValidation, Message: "request validation failed", Fields: fields}
}

// Invalid builds a single-field validation error.
func Invalid(field, message string) *Error {
	return Validation([]FieldViolation{{Field: field, Message: message}})
}

func RateLimit(message string, retryAfter *time.Duration, info *LimitInfo) *Error {
	if message == "" {
		message = "rate limit exceeded"
	}
	return &Error{Type: TypeRateLimit, Message: message, RetryAfter: retryAfter, Limit: info}
}

func Server(message, code, action, ref string) *Error {
	if code == "" {
		code = "UNKNOWN"
	}
	if message == "" {
		message = "server error"
	}
	return &Error{
		Type:             TypeServer,
		Message:          message,
		ErrorCode:        code,
		SuggestedAction:  action,
		SupportReference: ref,
	}
}

func Network(message string, cause error) *Error {
	if message == "" {
		message = "network failure"
	}
	return &Error{Type: TypeNetwork, Message: message, cause: cause}
}

func Timeout(message string) *Error {
	if message == "" {
		message = "request timed out"
	}
	return &Error{Type: TypeTimeout, Message: message}
}

func Cancelled(message string) *Error {
	if message == "" {
		message = "request cancelled"
	}
	return &Error{Type: TypeCancelled, Message: message}
}

// As extracts the client error from an error chain.
func As(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// TypeOf returns the variant of err, or "" when err is not a client error.
func TypeOf(err error) Type {
	if ce, ok := As(err); ok {
		return ce.Type
	}
	return ""
}
