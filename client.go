package passage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seluna-ai/passage/internal/db"
	dbRedis "github.com/seluna-ai/passage/internal/db/redis"
	"github.com/seluna-ai/passage/internal/domain"
	"github.com/seluna-ai/passage/internal/domain/budget"
	"github.com/seluna-ai/passage/internal/domain/retrieval/filterset"
	"github.com/seluna-ai/passage/internal/domain/retrieval/request"
	"github.com/seluna-ai/passage/internal/domain/retrieval/strategy"
	"github.com/seluna-ai/passage/internal/metrics"
	"github.com/seluna-ai/passage/internal/repository/embcache"
	ledgerrepo "github.com/seluna-ai/passage/internal/repository/ledger"
	passagerepo "github.com/seluna-ai/passage/internal/repository/passage"
	graphTransport "github.com/seluna-ai/passage/internal/transport/graph"
	openaiModel "github.com/seluna-ai/passage/internal/transport/openai"
	"github.com/seluna-ai/passage/internal/usecase/graphbridge"
	ledgeruc "github.com/seluna-ai/passage/internal/usecase/ledger"
	"github.com/seluna-ai/passage/internal/usecase/modelcall"
	"github.com/seluna-ai/passage/internal/usecase/rank"
	retrievaluc "github.com/seluna-ai/passage/internal/usecase/retrieval"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	ledgerMonthTTL          = 62 * 24 * time.Hour
)

// Internal interfaces for substitution in tests.
type retriever interface {
	Retrieve(ctx context.Context, req request.Request) (retrievaluc.Result, error)
}

type budgetReader interface {
	Summary(now time.Time) budget.Summary
}

type usageMarker interface {
	MarkUsed(ctx context.Context, id string, now time.Time) error
}

// Client is the passage SDK entry point.
type Client struct {
	store     db.Store
	retrieval retriever
	spend     budgetReader
	passages  usageMarker
	now       func() time.Time
}

// New creates a passage Client and connects to the database. The provided
// context bounds the initial readiness check and index creation.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("passage: database address required (use WithRedis or WithValkey)")
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("passage: database not ready: %w", err)
	}

	return wireClient(ctx, store, cfg)
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	// Valkey and Redis share the wire protocol, one rueidis store serves both.
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("passage: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("passage: unknown driver %q", cfg.driver)
	}
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig) (*Client, error) {
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	metrics.RegisterModelMetrics()
	metrics.RegisterRetrievalMetrics()

	passages := passagerepo.New(store)
	if err := passages.EnsureIndex(ctx, cfg.dimensions); err != nil {
		store.Close()
		return nil, fmt.Errorf("passage: ensure index: %w", err)
	}

	spend := ledgeruc.New(ledgerrepo.New(store, ledgerMonthTTL), cfg.budgetUSD, cfg.local, logger)
	if err := spend.Load(ctx, time.Now()); err != nil {
		store.Close()
		return nil, fmt.Errorf("passage: load spend ledger: %w", err)
	}

	embedder := buildClientEmbedder(cfg, store, spend, logger)

	vectorRanker := rank.NewVectorRanker(passages, cfg.params, logger)
	textRanker := rank.NewFullTextRanker(passages, logger)
	fusion := rank.NewFusionEngine(cfg.params)

	var orch *retrievaluc.Orchestrator
	if cfg.graphURL != "" {
		graphClient := graphTransport.New(&graphTransport.Config{
			BaseURL: cfg.graphURL,
			Token:   cfg.graphToken,
			Timeout: cfg.graphTimeout,
			Logger:  logger,
		})
		bridge := graphbridge.New(
			graphClient, passages, cfg.episodeLimit, cfg.chunksPerEpisode, logger,
		)
		orch = retrievaluc.New(embedder, vectorRanker, textRanker, bridge, fusion, passages, logger)
	} else {
		orch = retrievaluc.New(embedder, vectorRanker, textRanker, nil, fusion, passages, logger)
	}

	return &Client{
		store:     store,
		retrieval: orch,
		spend:     spend,
		passages:  passages,
		now:       time.Now,
	}, nil
}

// buildClientEmbedder assembles the embedding chain. A custom embedder
// replaces the OpenAI transport but keeps the cache in front of it.
func buildClientEmbedder(
	cfg *clientConfig, store db.Store, spend *ledgeruc.Ledger, logger *zap.Logger,
) domain.Embedder {
	var inner domain.Embedder
	switch {
	case cfg.embedder != nil:
		inner = &embedderAdapter{inner: cfg.embedder}
	case cfg.apiKey != "" || cfg.local:
		base := openaiModel.NewEmbedder(&openaiModel.Config{
			APIKey:     cfg.apiKey,
			BaseURL:    cfg.baseURL,
			Model:      cfg.embeddingModel,
			Dimensions: cfg.dimensions,
			Provider:   cfg.provider,
			Logger:     logger,
		})
		inner = modelcall.NewEmbedder(base, cfg.embeddingModel, spend, modelcall.Config{
			Provider: cfg.provider,
			Local:    cfg.local,
			Logger:   logger,
		})
	default:
		inner = noopEmbedder{}
	}

	return embcache.New(
		inner, store, cfg.embeddingModel, cfg.cacheTTL,
		metrics.EmbeddingCacheTotal, logger,
	)
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Retrieve runs a retrieval query and returns the ranked passages.
func (c *Client) Retrieve(ctx context.Context, q Query) (Result, error) {
	hint, err := strategy.Parse(q.Strategy)
	if err != nil {
		return Result{}, fmt.Errorf("passage: %w", err)
	}

	filters, err := filterset.New(q.Domain, q.SourceType, q.Topics, q.ExcludeIDs)
	if err != nil {
		return Result{}, fmt.Errorf("passage: %w", err)
	}

	req, err := request.New(q.Text, q.Limit, hint, filters)
	if err != nil {
		return Result{}, fmt.Errorf("passage: %w", err)
	}

	res, err := c.retrieval.Retrieve(ctx, req)
	if err != nil {
		return Result{}, err
	}

	out := Result{
		Passages:     make([]Passage, 0, len(res.Results)),
		StrategyUsed: string(res.StrategyUsed),
		OperationID:  res.OperationID,
	}
	for i := range res.Results {
		r := &res.Results[i]
		cand := r.Candidate()
		out.Passages = append(out.Passages, Passage{
			ID:            cand.ID(),
			DocumentID:    cand.DocumentID(),
			DocumentTitle: cand.DocumentTitle(),
			Text:          cand.Text(),
			Score:         r.FinalScore(),
			Source:        string(r.Source()),
			Justification: r.Justification(),
		})
	}
	return out, nil
}

// MarkUsed stamps a passage as used now, feeding the diversity penalty on
// later retrievals.
func (c *Client) MarkUsed(ctx context.Context, id string) error {
	return c.passages.MarkUsed(ctx, id, c.now())
}

// Budget returns the current monthly spend snapshot.
func (c *Client) Budget() BudgetSummary {
	s := c.spend.Summary(c.now())
	return BudgetSummary{
		Month:        s.Month(),
		SpentUSD:     s.SpentUSD(),
		BudgetUSD:    s.BudgetUSD(),
		PercentUsed:  s.PercentUsed(),
		ProjectedUSD: s.ProjectedUSD(),
		Operations:   s.Operations(),
		Status:       string(s.Status()),
		Tier:         string(s.Tier()),
	}
}
