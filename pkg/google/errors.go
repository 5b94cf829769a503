package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"google.golang.org/api/googleapi"
)

// RemoteError is a failed call against the external calendar service.
// Retryable errors (timeouts, 5xx, rate limits) may be retried by the caller
// with backoff; the gateway itself never retries beyond the single
// auth-refresh attempt.
type RemoteError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("calendar gateway: %s: %v (retryable=%t)", e.Op, e.Err, e.Retryable)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// classify wraps a raw calendar API error into a RemoteError. Timeouts and
// server-side failures are retryable; other client errors are not.
func classify(op string, err error) *RemoteError {
	retryable := false

	var netErr net.Error
	var apiErr *googleapi.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		retryable = true
	case errors.As(err, &netErr) && netErr.Timeout():
		retryable = true
	case errors.As(err, &apiErr):
		retryable = apiErr.Code >= http.StatusInternalServerError ||
			apiErr.Code == http.StatusTooManyRequests
	}

	return &RemoteError{Op: op, Retryable: retryable, Err: err}
}

// authRejected reports whether the remote refused the presented assertion.
// Exactly one re-issue and retry is allowed on this signal.
func authRejected(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized
}

// notFound reports a 404/410 from the remote; on delete paths this counts as
// an acknowledgement since the resource is already gone.
func notFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) &&
		(apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone)
}
