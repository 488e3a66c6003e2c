package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/seluna-ai/passage/internal/config"
	"github.com/seluna-ai/passage/internal/db"
	dbRedis "github.com/seluna-ai/passage/internal/db/redis"
	"github.com/seluna-ai/passage/internal/domain"
	logpkg "github.com/seluna-ai/passage/internal/logger"
	"github.com/seluna-ai/passage/internal/metrics"
	"github.com/seluna-ai/passage/internal/repository/embcache"
	ledgerrepo "github.com/seluna-ai/passage/internal/repository/ledger"
	passagerepo "github.com/seluna-ai/passage/internal/repository/passage"
	chiTransport "github.com/seluna-ai/passage/internal/transport/chi"
	graphTransport "github.com/seluna-ai/passage/internal/transport/graph"
	openaiModel "github.com/seluna-ai/passage/internal/transport/openai"
	"github.com/seluna-ai/passage/internal/usecase/graphbridge"
	healthuc "github.com/seluna-ai/passage/internal/usecase/health"
	ledgeruc "github.com/seluna-ai/passage/internal/usecase/ledger"
	"github.com/seluna-ai/passage/internal/usecase/modelcall"
	"github.com/seluna-ai/passage/internal/usecase/rank"
	retrievaluc "github.com/seluna-ai/passage/internal/usecase/retrieval"
	"github.com/seluna-ai/passage/internal/version"
)

// ledgerMonthTTL keeps a finished month's counters readable into the next
// month before they expire.
const ledgerMonthTTL = 62 * 24 * time.Hour

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting passage API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Valkey and Redis share the wire protocol, one rueidis store serves
	// both drivers.
	var store db.Store
	switch cfg.Database.Driver {
	case "valkey", "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterModelMetrics()
	metrics.RegisterRetrievalMetrics()

	domain.SetKeyPrefix(cfg.Database.KeyPrefix)

	// Passage repository owns the FT index over passage hashes
	passages := passagerepo.New(store)
	if err := passages.EnsureIndex(ctx, cfg.Model.Embedding.Dimensions); err != nil {
		logger.Fatal("Failed to ensure passage index", zap.Error(err))
	}

	// Spend ledger: durable monthly counters + in-memory accounting.
	// Load restores the current month so a restart never resets spend.
	spend := ledgeruc.New(
		ledgerrepo.New(store, ledgerMonthTTL),
		cfg.Budget.MonthlyUSD, cfg.Model.Local, logger,
	)
	if err := spend.Load(ctx, time.Now()); err != nil {
		logger.Fatal("Failed to load spend ledger", zap.Error(err))
	}
	logger.Info("Spend ledger loaded",
		zap.Float64("monthly_budget_usd", cfg.Budget.MonthlyUSD),
		zap.String("status", string(spend.Status())),
	)

	mcCfg := modelcall.Config{
		Provider:    cfg.Model.Provider,
		Local:       cfg.Model.Local,
		MaxAttempts: cfg.Model.Retry.MaxAttempts,
		BaseDelay:   time.Duration(cfg.Model.Retry.BaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.Model.Retry.MaxDelaySec) * time.Second,
		Logger:      logger,
	}

	embedder := buildEmbedder(cfg, store, spend, mcCfg, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Model.Provider),
		zap.String("model", cfg.Model.Embedding.Model),
		zap.Int("dimensions", cfg.Model.Embedding.Dimensions),
	)

	completer := buildCompleter(cfg, spend, mcCfg, logger)

	// Rankers share one parameter set so the score floor and diversity
	// decay stay consistent across strategies
	params := rank.Params{
		MinScore:         cfg.Retrieval.MinScore,
		DiversityPenalty: cfg.Retrieval.DiversityPenalty,
		Lookback:         time.Duration(cfg.Retrieval.LookbackDays) * 24 * time.Hour,
	}
	vectorRanker := rank.NewVectorRanker(passages, params, logger)
	textRanker := rank.NewFullTextRanker(passages, logger)
	fusion := rank.NewFusionEngine(params)

	var orch *retrievaluc.Orchestrator
	var healthSvc *healthuc.Service
	if cfg.Graph.BaseURL != "" {
		graphClient := graphTransport.New(&graphTransport.Config{
			BaseURL: cfg.Graph.BaseURL,
			Token:   cfg.Graph.Token,
			Timeout: time.Duration(cfg.Graph.TimeoutSec) * time.Second,
			Logger:  logger,
		})
		bridge := graphbridge.New(
			graphClient, passages,
			cfg.Retrieval.EpisodeLimit, cfg.Retrieval.ChunksPerEpisode, logger,
		)
		orch = retrievaluc.New(embedder, vectorRanker, textRanker, bridge, fusion, passages, logger)
		healthSvc = healthuc.New(store, completer, graphClient)
		logger.Info("Graph collaborator enabled", zap.String("base_url", cfg.Graph.BaseURL))
	} else {
		// No graph endpoint: graph-bridged requests degrade to hybrid
		orch = retrievaluc.New(embedder, vectorRanker, textRanker, nil, fusion, passages, logger)
		healthSvc = healthuc.New(store, completer, nil)
	}

	// Create chi server
	server := chiTransport.NewServer(orch, spend, passages, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> retry+cost -> cached.
// The cache sits outermost so a hit consumes neither retries nor budget.
func buildEmbedder(
	cfg config.Config,
	store db.Store,
	spend *ledgeruc.Ledger,
	mcCfg modelcall.Config,
	logger *zap.Logger,
) domain.Embedder {
	base := openaiModel.NewEmbedder(&openaiModel.Config{
		APIKey:     cfg.Model.APIKey,
		BaseURL:    cfg.Model.BaseURL,
		Model:      cfg.Model.Embedding.Model,
		Dimensions: cfg.Model.Embedding.Dimensions,
		Provider:   cfg.Model.Provider,
		Logger:     logger,
	})

	resilient := modelcall.NewEmbedder(base, cfg.Model.Embedding.Model, spend, mcCfg)

	return embcache.New(
		resilient, store, cfg.Model.Embedding.Model,
		time.Duration(cfg.Model.Embedding.CacheTTLHours)*time.Hour,
		metrics.EmbeddingCacheTotal, logger,
	)
}

// buildCompleter assembles the chat client: a primary endpoint plus an
// optional cheaper fallback the budget tier switches to.
func buildCompleter(
	cfg config.Config,
	spend *ledgeruc.Ledger,
	mcCfg modelcall.Config,
	logger *zap.Logger,
) *modelcall.Completer {
	primary := modelcall.Chat{
		Client: openaiModel.NewCompleter(&openaiModel.Config{
			APIKey:   cfg.Model.APIKey,
			BaseURL:  cfg.Model.BaseURL,
			Model:    cfg.Model.Chat.Model,
			Provider: cfg.Model.Provider,
			Logger:   logger,
		}),
		Model: cfg.Model.Chat.Model,
	}

	var fallback modelcall.Chat
	if cfg.Model.Chat.FallbackModel != "" {
		fallback = modelcall.Chat{
			Client: openaiModel.NewCompleter(&openaiModel.Config{
				APIKey:   cfg.Model.APIKey,
				BaseURL:  cfg.Model.BaseURL,
				Model:    cfg.Model.Chat.FallbackModel,
				Provider: cfg.Model.Provider,
				Logger:   logger,
			}),
			Model: cfg.Model.Chat.FallbackModel,
		}
	}

	return modelcall.NewCompleter(primary, fallback, spend, spend, mcCfg)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
