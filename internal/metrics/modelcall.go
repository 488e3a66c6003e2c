package metrics

import "github.com/prometheus/client_golang/prometheus"

// Model-call and budget Prometheus metrics.
var (
	ModelCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "passage",
			Name:      "model_calls_total",
			Help:      "Total number of model API calls",
		},
		[]string{"provider", "model", "status"},
	)

	ModelCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "passage",
			Name:      "model_call_duration_seconds",
			Help:      "Model API call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "model"},
	)

	ModelCallRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "passage",
			Name:      "model_call_retries_total",
			Help:      "Total model call retries by reason",
		},
		[]string{"provider", "model", "reason"},
	)

	ModelTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "passage",
			Name:      "model_tokens_total",
			Help:      "Total model tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	ModelCostUSDTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "passage",
			Name:      "model_cost_usd_total",
			Help:      "Total model spend in USD",
		},
		[]string{"provider", "model"},
	)

	BudgetRemainingUSD = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "passage",
			Name:      "budget_remaining_usd",
			Help:      "Remaining monthly budget in USD",
		},
		[]string{"month"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "passage",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var modelMetricsRegistered bool

// RegisterModelMetrics registers model-call metrics. Must be called once from main.
func RegisterModelMetrics() {
	if modelMetricsRegistered {
		return
	}
	prometheus.MustRegister(ModelCallsTotal)
	prometheus.MustRegister(ModelCallDuration)
	prometheus.MustRegister(ModelCallRetriesTotal)
	prometheus.MustRegister(ModelTokensTotal)
	prometheus.MustRegister(ModelCostUSDTotal)
	prometheus.MustRegister(BudgetRemainingUSD)
	prometheus.MustRegister(EmbeddingCacheTotal)
	modelMetricsRegistered = true
}
