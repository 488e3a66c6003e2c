package passage

import "github.com/seluna-ai/passage/internal/domain"

// Sentinel errors returned by Client methods, matchable with errors.Is.
var (
	// ErrNotFound signals a missing passage.
	ErrNotFound = domain.ErrNotFound
	// ErrRateLimited signals upstream model API throttling.
	ErrRateLimited = domain.ErrRateLimited
	// ErrQuotaExhausted signals exhausted model billing credits.
	ErrQuotaExhausted = domain.ErrQuotaExhausted
	// ErrBackendUnavailable signals an unreachable search backend.
	ErrBackendUnavailable = domain.ErrBackendUnavailable
	// ErrMalformedResponse signals an unparseable upstream model response.
	ErrMalformedResponse = domain.ErrMalformedResponse
)
