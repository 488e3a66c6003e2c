package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	openai "github.com/sashabaranov/go-openai"

	"github.com/seluna-ai/passage/internal/domain"
)

const quotaErrorCode = "insufficient_quota"

// classifyAPIError maps a go-openai error onto the domain taxonomy:
//   - 429 with an insufficient_quota code -> ErrQuotaExhausted (never retried)
//   - other 429 -> RateLimitError with a best-effort Retry-After hint
//   - 5xx -> ErrBackendUnavailable (transient, retryable)
//   - anything else -> ErrModelProviderError (fatal)
func classifyAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classify(apiErr.HTTPStatusCode, errorCode(apiErr.Code), apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return classify(reqErr.HTTPStatusCode, "", detail)
	}

	// Transport-level failure (DNS, connection reset, timeout).
	return fmt.Errorf("model request failed: %v: %w", err, domain.ErrBackendUnavailable)
}

func classify(status int, code, message string) error {
	switch {
	case status == 429 && code == quotaErrorCode:
		return fmt.Errorf("model API error 429: %s: %w", message, domain.ErrQuotaExhausted)
	case status == 429:
		return &domain.RateLimitError{RetryAfterSec: extractRetryHint(message)}
	case status >= 500:
		return fmt.Errorf("model API error %d: %s: %w", status, message, domain.ErrBackendUnavailable)
	default:
		return fmt.Errorf("model API error %d: %s: %w", status, message, domain.ErrModelProviderError)
	}
}

func errorCode(code any) string {
	if s, ok := code.(string); ok {
		return s
	}
	return ""
}

// retryHintPattern matches the "Please try again in 20s" / "in 1.5 seconds"
// phrasing of upstream rate-limit messages.
var retryHintPattern = regexp.MustCompile(`try again in ([0-9]+(?:\.[0-9]+)?)\s*(?:s|sec|seconds?)`)

// extractRetryHint pulls a retry delay in seconds out of a rate-limit
// message. Returns 0 when the upstream provided none.
func extractRetryHint(message string) float64 {
	m := retryHintPattern.FindStringSubmatch(message)
	if len(m) != 2 {
		return 0
	}
	sec, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return sec
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
