package jikan

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUpstreamUnavailable matches every failure talking to the metadata API:
// transport errors, non-2xx statuses and unparseable bodies.
var ErrUpstreamUnavailable = errors.New("jikan: upstream unavailable")

// ErrInvalidResponse marks a body that does not fit the response schema.
// Such errors also match ErrUpstreamUnavailable.
var ErrInvalidResponse = errors.New("jikan: invalid response")

// ErrInvalidID rejects a non-positive MyAnimeList id before any request is made.
var ErrInvalidID = errors.New("jikan: mal_id must be positive")

// UpstreamError carries the failing operation and the underlying cause.
type UpstreamError struct {
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("jikan %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("jikan %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamUnavailable }

func unavailable(op string, status int, err error) error {
	return &UpstreamError{Op: op, Status: status, Err: err}
}

func invalid(op string, err error) error {
	return &UpstreamError{Op: op, Err: fmt.Errorf("%w: %v", ErrInvalidResponse, err)}
}

// callerGone wraps a failure that happened after the caller's own context
// ended. The upstream was not at fault.
type callerGone struct{ error }

func (e callerGone) Unwrap() error { return e.error }

// BreakerSuccessful reports whether err leaves the circuit breaker's failure
// count alone. Only transport failures, 5xx and 429 count against the
// upstream; unknown ids, other 4xx, schema mismatches and callers that went
// away do not.
func BreakerSuccessful(err error) bool {
	if err == nil {
		return true
	}
	var gone callerGone
	if errors.As(err, &gone) {
		return true
	}
	if errors.Is(err, ErrInvalidResponse) || errors.Is(err, ErrInvalidID) {
		return true
	}
	var ue *UpstreamError
	if errors.As(err, &ue) && ue.Status >= 400 && ue.Status < 500 {
		return ue.Status != http.StatusTooManyRequests
	}
	return false
}
