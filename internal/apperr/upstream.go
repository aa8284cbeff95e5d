package apperr

import (
	"context"
	"errors"
	"net/http"
)

// UpstreamError is a failure reported by a collaborator (relay, executor,
// provisioning API). Its message is the collaborator's own text, unchanged.
type UpstreamError struct {
	Service    string
	StatusCode int
	Message    string
	cause      error
	class      *Error
}

// NewUpstreamError builds an UpstreamError from a non-2xx response.
func NewUpstreamError(service string, statusCode int, body string) *UpstreamError {
	return &UpstreamError{Service: service, StatusCode: statusCode, Message: body}
}

// Unavailable builds an UpstreamError for a transport failure or timeout.
// The message is the transport error text.
func Unavailable(service string, cause error) *UpstreamError {
	return &UpstreamError{Service: service, Message: cause.Error(), cause: cause}
}

// Classify returns a copy of e that also matches root in errors.Is. The
// message and status are unchanged.
func (e *UpstreamError) Classify(root *Error) *UpstreamError {
	c := *e
	c.class = root
	return &c
}

func (e *UpstreamError) Error() string {
	return e.Message
}

func (e *UpstreamError) Unwrap() error {
	return e.cause
}

// Is reports ErrServiceUnavailable for transport failures, timeouts and 5xx
// responses, and the root set by Classify.
func (e *UpstreamError) Is(target error) bool {
	if e.class != nil && target == e.class {
		return true
	}
	if target != ErrServiceUnavailable {
		return false
	}
	return e.StatusCode == 0 || e.StatusCode >= http.StatusInternalServerError
}

// HTTPStatus passes client errors through and reports everything else as 503.
func (e *UpstreamError) HTTPStatus() int {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return e.StatusCode
	}
	return http.StatusServiceUnavailable
}

// FromContext converts a context expiry into ErrServiceUnavailable. Other
// errors are returned unchanged.
func FromContext(service string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		var upstream *UpstreamError
		if errors.As(err, &upstream) {
			return err
		}
		return Unavailable(service, err)
	}
	return err
}
