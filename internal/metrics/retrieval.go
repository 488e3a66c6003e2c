package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval Prometheus metrics.
var (
	RetrievalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "passage",
			Name:      "retrieval_requests_total",
			Help:      "Total retrieval requests by requested and actually used strategy",
		},
		[]string{"requested", "used", "status"},
	)

	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "passage",
			Name:      "retrieval_duration_seconds",
			Help:      "End-to-end retrieval duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"used"},
	)

	RetrievalDegradationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "passage",
			Name:      "retrieval_degradations_total",
			Help:      "Strategy degradations by transition",
		},
		[]string{"from", "to"},
	)

	RetrievalResultsReturned = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "passage",
			Name:      "retrieval_results_returned",
			Help:      "Number of results returned per request",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
		[]string{"used"},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalRequestsTotal)
	prometheus.MustRegister(RetrievalDuration)
	prometheus.MustRegister(RetrievalDegradationsTotal)
	prometheus.MustRegister(RetrievalResultsReturned)
	retrievalMetricsRegistered = true
}
