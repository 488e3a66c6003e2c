package passage

import (
	"time"

	"go.uber.org/zap"

	"github.com/seluna-ai/passage/internal/usecase/rank"
)

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	driver   string // "valkey" or "redis"
	addrs    []string
	password string

	provider string
	apiKey   string
	baseURL  string
	local    bool
	embedder Embedder

	embeddingModel string
	dimensions     int
	cacheTTL       time.Duration

	chatModel         string
	chatFallbackModel string

	budgetUSD float64

	params rank.Params

	graphURL         string
	graphToken       string
	graphTimeout     time.Duration
	episodeLimit     int
	chunksPerEpisode int

	logger *zap.Logger
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		provider:       "openai",
		embeddingModel: "text-embedding-3-small",
		dimensions:     1536,
		cacheTTL:       24 * time.Hour,
		chatModel:      "gpt-5-mini",
		params:         rank.DefaultParams(),
		graphTimeout:   10 * time.Second,
	}
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithOpenAI sets the OpenAI API key for the built-in model client.
func WithOpenAI(apiKey string) Option {
	return func(c *clientConfig) {
		c.apiKey = apiKey
	}
}

// WithLocalProvider points the model client at a local OpenAI-compatible
// server (Ollama etc.). Local mode disables retries and budget accounting.
func WithLocalProvider(baseURL string) Option {
	return func(c *clientConfig) {
		c.local = true
		c.baseURL = baseURL
		c.provider = "local"
	}
}

// WithEmbedder replaces the built-in model client with a custom embedder.
func WithEmbedder(e Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithEmbeddingModel overrides the embedding model and its vector size.
// Dimensions must match the stored index.
func WithEmbeddingModel(model string, dimensions int) Option {
	return func(c *clientConfig) {
		c.embeddingModel = model
		c.dimensions = dimensions
	}
}

// WithChatModels sets the primary chat model and an optional cheaper
// fallback the budget tier switches to. Empty fallback disables switching.
func WithChatModels(primary, fallback string) Option {
	return func(c *clientConfig) {
		c.chatModel = primary
		c.chatFallbackModel = fallback
	}
}

// WithMonthlyBudget sets the monthly spend cap in USD. Zero disables
// budget accounting.
func WithMonthlyBudget(usd float64) Option {
	return func(c *clientConfig) {
		c.budgetUSD = usd
	}
}

// WithScoring overrides the ranking knobs: the vector score floor, the
// diversity penalty for recently-used passages, and its lookback window.
func WithScoring(minScore, diversityPenalty float64, lookback time.Duration) Option {
	return func(c *clientConfig) {
		c.params = rank.Params{
			MinScore:         minScore,
			DiversityPenalty: diversityPenalty,
			Lookback:         lookback,
		}
	}
}

// WithGraph enables the graph-bridged strategy against a graph-search
// endpoint.
func WithGraph(baseURL, token string) Option {
	return func(c *clientConfig) {
		c.graphURL = baseURL
		c.graphToken = token
	}
}

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}
