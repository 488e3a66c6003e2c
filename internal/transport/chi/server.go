package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/seluna-ai/passage/internal/domain"
	"github.com/seluna-ai/passage/internal/domain/budget"
	"github.com/seluna-ai/passage/internal/domain/retrieval/filterset"
	"github.com/seluna-ai/passage/internal/domain/retrieval/request"
	"github.com/seluna-ai/passage/internal/domain/retrieval/strategy"
	healthuc "github.com/seluna-ai/passage/internal/usecase/health"
	retrievaluc "github.com/seluna-ai/passage/internal/usecase/retrieval"
)

// retriever runs retrieval requests.
type retriever interface {
	Retrieve(ctx context.Context, req request.Request) (retrievaluc.Result, error)
}

// budgetReader serves the budget snapshot.
type budgetReader interface {
	Summary(now time.Time) budget.Summary
}

// usageMarker stamps a passage as surfaced.
type usageMarker interface {
	MarkUsed(ctx context.Context, id string, now time.Time) error
}

// healthChecker aggregates component health.
type healthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the hand-written HTTP API.
type Server struct {
	retrieval     retriever
	budget        budgetReader
	passages      usageMarker
	health        healthChecker
	logger        *zap.Logger
	now           func() time.Time
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	retrieval retriever,
	budgetR budgetReader,
	passages usageMarker,
	health healthChecker,
	logger *zap.Logger,
) *Server {
	s := &Server{
		retrieval: retrieval,
		budget:    budgetR,
		passages:  passages,
		health:    health,
		logger:    logger,
		now:       time.Now,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrQuotaExhausted, http.StatusPaymentRequired, codeQuotaExhausted),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrBackendUnavailable, http.StatusServiceUnavailable, codeBackendUnavailable),
		sentinelHandler(domain.ErrMalformedResponse, http.StatusBadGateway, codeMalformedUpstream),
		sentinelHandler(domain.ErrModelProviderError, http.StatusBadGateway, codeBackendUnavailable),
	}
	return s
}

// Routes mounts the API on a chi router.
func (s *Server) Routes(r chirouter.Router) {
	r.Post("/retrieve", s.Retrieve)
	r.Get("/budget", s.Budget)
	r.Post("/passages/{id}/used", s.MarkUsed)
	r.Get("/health", s.Health)
	r.Get("/metrics", s.Metrics)
}

// Retrieve handles POST /retrieve.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	hint, err := strategy.Parse(req.Strategy)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	filters, err := filtersFromDTO(req.Filters)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	domReq, err := request.New(req.Query, req.Limit, hint, filters)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	res, err := s.retrieval.Retrieve(r.Context(), domReq)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, retrieveResultToDTO(res))
}

// Budget handles GET /budget.
func (s *Server) Budget(w http.ResponseWriter, r *http.Request) {
	sum := s.budget.Summary(s.now())

	writeJSON(w, http.StatusOK, budgetResponse{
		Month:           sum.Month(),
		SpentUSD:        sum.SpentUSD(),
		BudgetUSD:       sum.BudgetUSD(),
		PercentageUsed:  sum.PercentUsed(),
		Status:          string(sum.Status()),
		ActiveModelTier: string(sum.Tier()),
		Operations:      sum.Operations(),
		ProjectedUSD:    sum.ProjectedUSD(),
	})
}

// MarkUsed handles POST /passages/{id}/used.
func (s *Server) MarkUsed(w http.ResponseWriter, r *http.Request) {
	id := chirouter.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "passage id is required")
		return
	}

	if err := s.passages.MarkUsed(r.Context(), id, s.now()); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for name, res := range report.Checks {
		checks[name] = string(res)
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func filtersFromDTO(f *retrieveFilters) (filterset.Set, error) {
	if f == nil {
		return filterset.Set{}, nil
	}
	return filterset.New(f.Domain, f.SourceType, f.Topics, f.ExcludeIDs)
}

func retrieveResultToDTO(res retrievaluc.Result) retrieveResponse {
	items := make([]resultItem, 0, len(res.Results))
	for i := range res.Results {
		r := &res.Results[i]
		c := r.Candidate()
		items = append(items, resultItem{
			ID:            c.ID(),
			DocumentID:    c.DocumentID(),
			DocumentTitle: c.DocumentTitle(),
			Text:          c.Text(),
			Score:         r.FinalScore(),
			Source:        string(r.Source()),
			Justification: r.Justification(),
		})
	}
	return retrieveResponse{
		Results:      items,
		StrategyUsed: string(res.StrategyUsed),
		OperationID:  res.OperationID,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrQuotaExhausted,
		domain.ErrRateLimited,
		domain.ErrBackendUnavailable,
		domain.ErrMalformedResponse,
		domain.ErrModelProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
