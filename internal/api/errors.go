package api

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the analysis service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api error (%d)", e.StatusCode)
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Body)
}

// PendingError is the 202 response on an analysis fetch: the backend is
// still computing. It is informational and never auto-retried by the run.
type PendingError struct {
	Detail string
}

func (e *PendingError) Error() string {
	if e.Detail == "" {
		return "analysis is still being computed"
	}
	return e.Detail
}

// IsConflict reports whether err is a 409 from the generation endpoint,
// meaning an equivalent job is already running for the same repository.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

// IsPending reports whether err is the 202 still-computing response.
func IsPending(err error) bool {
	var pending *PendingError
	return errors.As(err, &pending)
}

// IsRetryable reports whether err is a transient failure (5xx or 429).
// The orchestrator itself never retries; this exists for callers that wrap
// the client in their own retry policy.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode >= 500 || apiErr.StatusCode == http.StatusTooManyRequests
}
