// Package modelcall wraps the raw model transport with retry, cost
// accounting, and budget-aware bookkeeping. The transport classifies wire
// errors into the domain taxonomy; this layer decides what is worth
// retrying and what every call costs.
package modelcall

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/seluna-ai/passage/internal/domain"
	"github.com/seluna-ai/passage/internal/metrics"
)

// Retry defaults. Local providers get one attempt: a local runtime has no
// rate limits worth waiting out.
const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 60 * time.Second

	minDelay = 100 * time.Millisecond
)

// retrier runs a model call with exponential backoff on transient errors.
type retrier struct {
	provider    string
	local       bool
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	logger      *zap.Logger

	// jitter source, replaced in tests for determinism.
	rand func() float64
}

func newRetrier(provider string, local bool, maxAttempts int, baseDelay, maxDelay time.Duration, logger *zap.Logger) *retrier {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &retrier{
		provider:    provider,
		local:       local,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		logger:      logger,
		rand:        rand.Float64,
	}
}

// do runs the call, retrying rate limits and unavailable backends until the
// attempt budget runs out. Quota exhaustion and provider errors are fatal
// on first sight. The last error is returned as-is so callers can inspect
// the taxonomy.
func (r *retrier) do(ctx context.Context, model string, call func(context.Context) error) error {
	attempts := r.maxAttempts
	if r.local {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = call(ctx)
		if err == nil {
			return nil
		}

		reason, retryable := retryReason(err)
		if !retryable || attempt == attempts-1 {
			return err
		}

		metrics.ModelCallRetriesTotal.WithLabelValues(r.provider, model, reason).Inc()

		delay := r.delay(attempt, retryAfterHint(err))
		r.logger.Warn("model call retry",
			zap.String("model", model),
			zap.String("reason", reason),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", attempts),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// delay computes the wait before the next attempt: base*2^attempt with
// ±25% jitter, clamped to [minDelay, maxDelay]. An upstream Retry-After
// hint replaces the computed base.
func (r *retrier) delay(attempt int, hintSec float64) time.Duration {
	base := float64(r.baseDelay) * math.Pow(2, float64(attempt))
	if hintSec > 0 {
		base = hintSec * float64(time.Second)
	}
	jitter := base * 0.25 * (2*r.rand() - 1)

	d := time.Duration(base + jitter)
	if d < minDelay {
		d = minDelay
	}
	if d > r.maxDelay {
		d = r.maxDelay
	}
	return d
}

// retryReason classifies an error as retryable with a metrics label.
// ErrQuotaExhausted deliberately falls through to fatal even though it is
// wire-level a 429.
func retryReason(err error) (string, bool) {
	switch {
	case errors.Is(err, domain.ErrQuotaExhausted):
		return "", false
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited", true
	case errors.Is(err, domain.ErrBackendUnavailable):
		return "backend_unavailable", true
	default:
		return "", false
	}
}

// retryAfterHint extracts the upstream Retry-After hint in seconds,
// 0 when absent.
func retryAfterHint(err error) float64 {
	var rl *domain.RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfterSec
	}
	return 0
}
