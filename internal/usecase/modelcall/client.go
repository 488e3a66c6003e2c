package modelcall

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seluna-ai/passage/internal/domain"
	"github.com/seluna-ai/passage/internal/domain/budget"
	"github.com/seluna-ai/passage/internal/domain/pricing"
	"github.com/seluna-ai/passage/internal/metrics"
	ledgeruc "github.com/seluna-ai/passage/internal/usecase/ledger"
)

// recorder receives one CallRecord per completed model call.
type recorder interface {
	Record(rec budget.CallRecord)
}

// tierSource exposes the active model tier derived from monthly spend.
type tierSource interface {
	Tier() budget.Tier
}

// Config holds the retry and accounting settings shared by the resilient
// embedder and completer.
type Config struct {
	Provider    string
	Local       bool
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Prices      pricing.Registry
	Logger      *zap.Logger
}

// Chat names one concrete chat endpoint together with its pricing identity.
type Chat struct {
	Client domain.Completer
	Model  string
}

// accountant turns token usage into ledger records. Spend is recorded even
// when the triggering context is already cancelled: the tokens were consumed.
type accountant struct {
	prices   pricing.Registry
	ledger   recorder
	provider string
	logger   *zap.Logger
	now      func() time.Time
}

func newAccountant(ledger recorder, cfg Config) *accountant {
	prices := cfg.Prices
	if prices == nil {
		prices = pricing.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &accountant{
		prices:   prices,
		ledger:   ledger,
		provider: cfg.Provider,
		logger:   logger,
		now:      time.Now,
	}
}

func (a *accountant) record(ctx context.Context, model string, tokensIn, tokensOut int) {
	cost, known := a.prices.Cost(model, tokensIn, tokensOut)
	if !known {
		a.logger.Warn("no pricing for model, recording zero cost",
			zap.String("model", model))
	}

	now := a.now()
	var rec budget.CallRecord
	if op, ok := ledgeruc.OperationFrom(ctx); ok {
		rec = op.Observe(model, tokensIn, tokensOut, cost, now)
	} else {
		rec = budget.CallRecord{
			OperationID: uuid.NewString(),
			Model:       model,
			TokensIn:    tokensIn,
			TokensOut:   tokensOut,
			CostUSD:     cost,
			Timestamp:   now,
		}
	}

	metrics.ModelCostUSDTotal.WithLabelValues(a.provider, model).Add(cost)

	if a.ledger != nil {
		a.ledger.Record(rec)
	}
}

// Embedder is the resilient decorator over the raw embedding transport:
// retry on transient failures, cost recorded on success. The embedding
// model never tier-switches, the stored vectors must stay comparable.
type Embedder struct {
	inner domain.Embedder
	model string
	retry *retrier
	costs *accountant
}

// NewEmbedder wraps an embedding transport with retry and cost accounting.
func NewEmbedder(inner domain.Embedder, model string, ledger recorder, cfg Config) *Embedder {
	return &Embedder{
		inner: inner,
		model: model,
		retry: newRetrier(cfg.Provider, cfg.Local, cfg.MaxAttempts, cfg.BaseDelay, cfg.MaxDelay, cfg.Logger),
		costs: newAccountant(ledger, cfg),
	}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	var res domain.EmbeddingResult

	err := e.retry.do(ctx, e.model, func(ctx context.Context) error {
		var callErr error
		res, callErr = e.inner.Embed(ctx, text)
		return callErr
	})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	e.costs.record(ctx, e.model, res.PromptTokens, 0)
	return res, nil
}

// Completer is the resilient decorator over the chat transport. When the
// tier source reports the fallback tier and a fallback endpoint is
// configured, calls route to the cheaper model.
type Completer struct {
	primary  Chat
	fallback Chat
	tiers    tierSource
	retry    *retrier
	costs    *accountant
}

// NewCompleter wraps chat transports with retry, cost accounting, and
// budget-driven model selection. fallback may be the zero value when no
// cheaper model is configured.
func NewCompleter(primary, fallback Chat, tiers tierSource, ledger recorder, cfg Config) *Completer {
	return &Completer{
		primary:  primary,
		fallback: fallback,
		tiers:    tiers,
		retry:    newRetrier(cfg.Provider, cfg.Local, cfg.MaxAttempts, cfg.BaseDelay, cfg.MaxDelay, cfg.Logger),
		costs:    newAccountant(ledger, cfg),
	}
}

// Complete implements domain.Completer.
func (c *Completer) Complete(
	ctx context.Context, messages []domain.ChatMessage, jsonMode bool,
) (domain.ChatResult, error) {
	chat := c.active()

	var res domain.ChatResult
	err := c.retry.do(ctx, chat.Model, func(ctx context.Context) error {
		var callErr error
		res, callErr = chat.Client.Complete(ctx, messages, jsonMode)
		return callErr
	})
	if err != nil {
		return domain.ChatResult{}, err
	}

	c.costs.record(ctx, chat.Model, res.PromptTokens, res.CompletionTokens)
	return res, nil
}

// HealthCheck probes the chat endpoint currently selected by the budget
// tier, when the transport supports it.
func (c *Completer) HealthCheck(ctx context.Context) error {
	if hc, ok := c.active().Client.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// active selects the endpoint for the current budget tier.
func (c *Completer) active() Chat {
	if c.tiers != nil && c.fallback.Client != nil && c.tiers.Tier() == budget.TierFallback {
		return c.fallback
	}
	return c.primary
}
