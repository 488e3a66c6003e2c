package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/seluna-ai/passage/internal/domain"
	"github.com/seluna-ai/passage/internal/metrics"
)

// Completer is a chat completion provider over the OpenAI-compatible API.
type Completer struct {
	client   *openai.Client
	model    string
	provider string
	logger   *zap.Logger
}

// NewCompleter creates an OpenAI-compatible chat completion provider.
func NewCompleter(cfg *Config) *Completer {
	return &Completer{
		client:   newClient(cfg),
		model:    cfg.Model,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// Complete implements domain.Completer. jsonMode requests a JSON object
// response; callers still validate the payload.
func (c *Completer) Complete(
	ctx context.Context, messages []domain.ChatMessage, jsonMode bool,
) (domain.ChatResult, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.ModelCallsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
		return domain.ChatResult{}, classifyAPIError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.ModelCallsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
		return domain.ChatResult{}, fmt.Errorf("empty completion response: %w", domain.ErrModelProviderError)
	}

	metrics.ModelCallsTotal.WithLabelValues(c.provider, c.model, "success").Inc()
	metrics.ModelCallDuration.WithLabelValues(c.provider, c.model).Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		metrics.ModelTokensTotal.WithLabelValues(c.provider, c.model, "prompt").
			Add(float64(resp.Usage.PromptTokens))
		metrics.ModelTokensTotal.WithLabelValues(c.provider, c.model, "completion").
			Add(float64(resp.Usage.CompletionTokens))
		metrics.ModelTokensTotal.WithLabelValues(c.provider, c.model, "total").
			Add(float64(resp.Usage.TotalTokens))
	}

	return domain.ChatResult{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Completer) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
