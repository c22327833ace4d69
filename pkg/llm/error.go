package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// TransientError marks a failure as retryable: network errors, timeouts, and
// provider-side overload. Callers may retry or fall back locally; anything
// else is a permanent failure for this invocation.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient provider failure: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a TransientError. Returns nil for a nil err.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is (or wraps) a retryable provider failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// classifyRequestErr wraps transport-level failures as transient. Context
// deadline and network timeouts are the common cases.
func classifyRequestErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Transient(err)
	}
	return err
}

// transientStatus reports whether an HTTP status from a provider indicates a
// condition worth retrying.
func transientStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= http.StatusInternalServerError
}

// ClassifyHTTPError is used by provider implementations to turn a non-200
// response into a transient or permanent error.
func ClassifyHTTPError(code int, err error) error {
	if transientStatus(code) {
		return Transient(err)
	}
	return err
}

// ClassifyRequestError is used by provider implementations to classify
// transport failures from http.Client.Do.
func ClassifyRequestError(err error) error {
	return classifyRequestErr(err)
}
