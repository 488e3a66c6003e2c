// Package retrieval is the public entry point of the engine. The
// orchestrator selects a strategy, runs its rankers, degrades to cheaper
// strategies when a signal fails, and tops the result up so a degraded
// request still returns a full list.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seluna-ai/passage/internal/domain"
	"github.com/seluna-ai/passage/internal/domain/candidate"
	"github.com/seluna-ai/passage/internal/domain/retrieval/filterset"
	"github.com/seluna-ai/passage/internal/domain/retrieval/request"
	"github.com/seluna-ai/passage/internal/domain/retrieval/strategy"
	"github.com/seluna-ai/passage/internal/metrics"
	ledgeruc "github.com/seluna-ai/passage/internal/usecase/ledger"
)

// Rankers fetch more than the final limit so the score floor and the
// dedupe pass do not starve the response.
const overfetch = 2

// dedupePrefixLen is the content-prefix length used to drop near-identical
// passages during top-up.
const dedupePrefixLen = 100

type embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

type vectorRanker interface {
	Rank(ctx context.Context, queryVec []float32, filters filterset.Set, k int, now time.Time) ([]candidate.Ranked, error)
}

type textRanker interface {
	Rank(ctx context.Context, query string, filters filterset.Set, k int) ([]candidate.Ranked, error)
}

type graphRanker interface {
	Rank(ctx context.Context, query string) ([]candidate.Ranked, error)
}

type fuser interface {
	Fuse(vector, fulltext []candidate.Ranked, k int, now time.Time) []candidate.Ranked
}

type textCapability interface {
	SupportsTextSearch(ctx context.Context) bool
}

// Result is a completed retrieval with its observability trace. A degraded
// request returns a normal result list; StrategyUsed is the only visible
// trace of degradation.
type Result struct {
	Results      []candidate.Ranked
	StrategyUsed strategy.Strategy
	OperationID  string
}

// Orchestrator runs retrieval requests.
type Orchestrator struct {
	embedder embedder
	vector   vectorRanker
	fulltext textRanker
	graph    graphRanker // nil when no graph collaborator is configured
	fusion   fuser
	caps     textCapability
	logger   *zap.Logger
	now      func() time.Time
}

// New creates an orchestrator. graph may be nil; GraphBridged requests then
// degrade to FusedHybrid immediately.
func New(
	emb embedder, vector vectorRanker, fulltext textRanker,
	graph graphRanker, fusion fuser, caps textCapability, logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		embedder: emb,
		vector:   vector,
		fulltext: fulltext,
		graph:    graph,
		fusion:   fusion,
		caps:     caps,
		logger:   logger,
		now:      time.Now,
	}
}

// Retrieve executes the request under its strategy hint, degrading as
// needed. Quota exhaustion is the only model-side error that surfaces
// unmodified: it requires human action, not another strategy.
func (o *Orchestrator) Retrieve(ctx context.Context, req request.Request) (Result, error) {
	start := time.Now()

	op, ok := ledgeruc.OperationFrom(ctx)
	if !ok {
		op = ledgeruc.NewOperation()
		ctx = ledgeruc.WithOperation(ctx, op)
	}

	requested := req.Hint()
	if requested == "" {
		requested = strategy.FusedHybrid
	}

	res, err := o.run(ctx, req, requested)
	res.OperationID = op.ID()

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RetrievalRequestsTotal.WithLabelValues(string(requested), string(res.StrategyUsed), status).Inc()
	metrics.RetrievalDuration.WithLabelValues(string(res.StrategyUsed)).Observe(time.Since(start).Seconds())
	if err == nil {
		metrics.RetrievalResultsReturned.WithLabelValues(string(res.StrategyUsed)).Observe(float64(len(res.Results)))
	}

	o.logger.Info("retrieval served",
		zap.String("requested", string(requested)),
		zap.String("used", string(res.StrategyUsed)),
		zap.String("operation_id", op.ID()),
		zap.Int("results", len(res.Results)),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err))

	return res, err
}

func (o *Orchestrator) run(ctx context.Context, req request.Request, requested strategy.Strategy) (Result, error) {
	used := requested

	var (
		ranked   []candidate.Ranked
		queryVec []float32
	)

	if used == strategy.GraphBridged {
		graphRanked, err := o.runGraph(ctx, req.Query())
		switch {
		case err == nil:
			ranked = graphRanked
		case errors.Is(err, domain.ErrQuotaExhausted):
			return Result{StrategyUsed: used}, err
		default:
			// A graph failure is never a hard error for the caller.
			o.degrade(used, strategy.FusedHybrid, err)
			used = strategy.FusedHybrid
		}
	}

	if used == strategy.FusedHybrid && !o.textSearchAvailable(ctx) {
		o.degrade(used, strategy.VectorOnly, errors.New("full-text search unsupported by the store"))
		used = strategy.VectorOnly
	}

	if ranked == nil {
		var err error
		ranked, used, queryVec, err = o.runRankers(ctx, req, used)
		if err != nil {
			return Result{StrategyUsed: used}, err
		}
	}

	ranked, err := o.topUp(ctx, req, ranked, queryVec)
	if err != nil {
		return Result{StrategyUsed: used}, err
	}

	if len(ranked) > req.Limit() {
		ranked = ranked[:req.Limit()]
	}
	return Result{Results: ranked, StrategyUsed: used}, nil
}

// runRankers executes the vector / full-text strategies. In FusedHybrid,
// the two sources run concurrently and a single-source failure degrades to
// the surviving source instead of failing the request.
func (o *Orchestrator) runRankers(
	ctx context.Context, req request.Request, used strategy.Strategy,
) ([]candidate.Ranked, strategy.Strategy, []float32, error) {
	k := req.Limit() * overfetch
	now := o.now()

	queryVec, embErr := o.embed(ctx, req.Query())
	if embErr != nil && (used == strategy.VectorOnly || errors.Is(embErr, domain.ErrQuotaExhausted)) {
		return nil, used, nil, embErr
	}

	if used == strategy.VectorOnly {
		ranked, err := o.vector.Rank(ctx, queryVec, req.Filters(), k, now)
		if err != nil {
			return nil, used, nil, err
		}
		return ranked, used, queryVec, nil
	}

	var (
		wg               sync.WaitGroup
		vecList, txtList []candidate.Ranked
		vecErr, txtErr   error
	)

	vecErr = embErr
	if embErr == nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vecList, vecErr = o.vector.Rank(ctx, queryVec, req.Filters(), k, now)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		txtList, txtErr = o.fulltext.Rank(ctx, req.Query(), req.Filters(), k)
	}()
	wg.Wait()

	switch {
	case vecErr != nil && txtErr != nil:
		return nil, used, nil, fmt.Errorf("all sources failed: vector: %v: fulltext: %w", vecErr, txtErr)
	case vecErr != nil:
		o.logger.Warn("vector source failed, serving full-text alone", zap.Error(vecErr))
		metrics.RetrievalDegradationsTotal.WithLabelValues(string(used), "fulltext_partial").Inc()
		queryVec = nil
	case txtErr != nil:
		o.logger.Warn("full-text source failed, serving vector alone", zap.Error(txtErr))
		metrics.RetrievalDegradationsTotal.WithLabelValues(string(used), "vector_partial").Inc()
	}

	return o.fusion.Fuse(vecList, txtList, req.Limit(), now), used, queryVec, nil
}

// topUp fills a short result list with a fresh vector pass, excluding ids
// already present and dropping near-identical passages by content prefix.
// Best-effort: a top-up failure never degrades an already usable result,
// except quota exhaustion which always surfaces.
func (o *Orchestrator) topUp(
	ctx context.Context, req request.Request, ranked []candidate.Ranked, queryVec []float32,
) ([]candidate.Ranked, error) {
	missing := req.Limit() - len(ranked)
	if missing <= 0 || len(ranked) == 0 {
		// An empty result is a legitimate answer, not something to pad.
		return ranked, nil
	}

	if queryVec == nil {
		vec, err := o.embed(ctx, req.Query())
		if err != nil {
			if errors.Is(err, domain.ErrQuotaExhausted) {
				return nil, err
			}
			o.logger.Warn("top-up embedding failed", zap.Error(err))
			return ranked, nil
		}
		queryVec = vec
	}

	exclude := make([]string, 0, len(ranked))
	seen := make(map[string]struct{}, len(ranked))
	for i := range ranked {
		exclude = append(exclude, ranked[i].ID())
		cand := ranked[i].Candidate()
		seen[contentPrefix(cand.Text())] = struct{}{}
	}

	extra, err := o.vector.Rank(ctx, queryVec, req.Filters().WithExcludeIDs(exclude), missing*overfetch, o.now())
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExhausted) {
			return nil, err
		}
		o.logger.Warn("top-up vector search failed", zap.Error(err))
		return ranked, nil
	}

	for _, r := range extra {
		cand := r.Candidate()
		prefix := contentPrefix(cand.Text())
		if _, dup := seen[prefix]; dup {
			continue
		}
		seen[prefix] = struct{}{}
		ranked = append(ranked, r)
		if len(ranked) >= req.Limit() {
			break
		}
	}
	return ranked, nil
}

func (o *Orchestrator) runGraph(ctx context.Context, query string) ([]candidate.Ranked, error) {
	if o.graph == nil {
		return nil, domain.ErrNoGraphResolution
	}
	return o.graph.Rank(ctx, query)
}

func (o *Orchestrator) embed(ctx context.Context, query string) ([]float32, error) {
	res, err := o.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return res.Embedding, nil
}

func (o *Orchestrator) textSearchAvailable(ctx context.Context) bool {
	return o.caps == nil || o.caps.SupportsTextSearch(ctx)
}

func (o *Orchestrator) degrade(from, to strategy.Strategy, cause error) {
	o.logger.Info("strategy degraded",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Error(cause))
	metrics.RetrievalDegradationsTotal.WithLabelValues(string(from), string(to)).Inc()
}

func contentPrefix(text string) string {
	if len(text) > dedupePrefixLen {
		return text[:dedupePrefixLen]
	}
	return text
}
