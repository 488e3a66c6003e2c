package modelcall

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/seluna-ai/passage/internal/domain"
)

// Smaller local models wrap JSON in markdown fences or surround it with
// prose even when asked for a JSON object.
var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSON recovers a JSON object from model output: direct parse
// first, then a fenced code block, then the outermost brace span. Returns
// a MalformedResponseError when nothing parses.
func ExtractJSON(raw string) ([]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, domain.NewMalformedResponse(raw)
	}

	if json.Valid([]byte(trimmed)) {
		return []byte(trimmed), nil
	}

	if m := fencedJSONPattern.FindStringSubmatch(trimmed); m != nil {
		if json.Valid([]byte(m[1])) {
			return []byte(m[1]), nil
		}
	}

	if start, end := strings.Index(trimmed, "{"), strings.LastIndex(trimmed, "}"); start >= 0 && end > start {
		span := trimmed[start : end+1]
		if json.Valid([]byte(span)) {
			return []byte(span), nil
		}
	}

	return nil, domain.NewMalformedResponse(raw)
}

// CompleteJSON runs a JSON-mode completion and decodes the payload into
// out, tolerating fenced or prose-wrapped responses.
func (c *Completer) CompleteJSON(
	ctx context.Context, messages []domain.ChatMessage, out any,
) (domain.ChatResult, error) {
	res, err := c.Complete(ctx, messages, true)
	if err != nil {
		return domain.ChatResult{}, err
	}

	payload, err := ExtractJSON(res.Content)
	if err != nil {
		return res, err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return res, domain.NewMalformedResponse(res.Content)
	}
	return res, nil
}
