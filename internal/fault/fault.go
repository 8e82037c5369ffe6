package fault

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for reporting and observability.
type Kind string

const (
	KindValidation Kind = "validation"
	KindUpstream   Kind = "upstream"
	KindTimeout    Kind = "timeout"
	KindCancelled  Kind = "cancelled"
	KindInternal   Kind = "internal"
)

// Error is the only error shape allowed to cross an adapter boundary.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// Validation reports a caller precondition violation. Never retried.
func Validation(code, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Upstream reports a collaborator failure or unexpected response shape.
func Upstream(code string, err error) *Error {
	return &Error{Kind: KindUpstream, Code: code, Message: "upstream provider failed", err: err}
}

// UpstreamStatus reports a collaborator HTTP failure, carrying its status code.
func UpstreamStatus(status int, detail string) *Error {
	return &Error{
		Kind:    KindUpstream,
		Code:    fmt.Sprintf("upstream_status_%d", status),
		Message: detail,
	}
}

// Timeout reports that the collaborator missed the configured deadline.
func Timeout(code string, err error) *Error {
	return &Error{Kind: KindTimeout, Code: code, Message: "provider deadline exceeded", err: err}
}

// Cancelled reports caller disconnection or an elapsed end-to-end deadline.
func Cancelled(err error) *Error {
	return &Error{Kind: KindCancelled, Code: "cancelled", Message: "request cancelled", err: err}
}

// Internal reports a defect. Always logged with full context by the caller.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: "internal", Message: "internal error", err: err}
}

// KindOf extracts the classification from an error chain. Unclassified
// errors are defects and report as internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	return KindInternal
}

// CodeOf extracts the machine-readable code, falling back to the kind.
func CodeOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) && fe.Code != "" {
		return fe.Code
	}
	return string(KindOf(err))
}

// HTTPStatus maps a failure kind to the externally reported status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUpstream:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// FromCall classifies the error from a collaborator call made under a
// per-adapter deadline. The parent context distinguishes caller
// cancellation from an adapter timeout.
func FromCall(parent, call context.Context, code string, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	if parent.Err() != nil {
		return Cancelled(err)
	}
	if errors.Is(call.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return Timeout(code, err)
	}
	return Upstream(code, err)
}

// IsRetryableHTTPStatus classifies retryable provider status codes. Used
// for observability labels only; calls remain single-attempt.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
