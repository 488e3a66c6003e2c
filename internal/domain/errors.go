package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrBackendUnavailable signals an unreachable search backend (vector,
	// full-text, or graph). Distinct from an empty result set so the
	// orchestrator can fall back to another strategy.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrRateLimited signals upstream model API throttling. Retryable.
	ErrRateLimited = errors.New("rate limited")
	// ErrQuotaExhausted signals exhausted billing credits. Never retried;
	// propagates to the caller unmodified.
	ErrQuotaExhausted = errors.New("model quota exhausted")
	// ErrMalformedResponse signals an unparseable upstream model response.
	ErrMalformedResponse = errors.New("malformed upstream response")
	// ErrNoGraphResolution signals that no graph episode reference resolved
	// to a stored passage. The orchestrator treats it as a fallback trigger.
	ErrNoGraphResolution = errors.New("no graph episodes resolved")
	// ErrModelProviderError signals any other model API failure. Not retried.
	ErrModelProviderError = errors.New("model provider error")
)

// MalformedResponseError wraps ErrMalformedResponse with a truncated sample of
// the raw upstream payload for diagnostics.
type MalformedResponseError struct {
	Sample string
}

const malformedSampleLimit = 200

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: %q", ErrMalformedResponse.Error(), e.Sample)
}

func (e *MalformedResponseError) Unwrap() error { return ErrMalformedResponse }

// NewMalformedResponse creates a malformed response error, truncating the raw
// payload to a loggable sample.
func NewMalformedResponse(raw string) error {
	if len(raw) > malformedSampleLimit {
		raw = raw[:malformedSampleLimit]
	}
	return &MalformedResponseError{Sample: raw}
}

// RateLimitError wraps ErrRateLimited with an optional upstream Retry-After
// hint in seconds (0 when the upstream provided none).
type RateLimitError struct {
	RetryAfterSec float64
}

func (e *RateLimitError) Error() string {
	if e.RetryAfterSec > 0 {
		return fmt.Sprintf("%s: retry after %.1fs", ErrRateLimited.Error(), e.RetryAfterSec)
	}
	return ErrRateLimited.Error()
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }
