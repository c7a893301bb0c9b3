package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics: embeddings, hosted jobs, citations, answers.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpusd",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "corpusd",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpusd",
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		},
		[]string{"model", "type"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpusd",
			Name:      "embedding_errors_total",
			Help:      "Total embedding errors",
		},
		[]string{"model", "error_type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpusd",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	JobPollsTotal = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "corpusd",
			Name:      "job_polls_per_request",
			Help:      "Poll iterations spent waiting on a hosted job",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 30, 40, 45},
		},
		[]string{"final_status"},
	)

	CitationsResolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpusd",
			Name:      "citations_resolved_total",
			Help:      "Citation refs by resolution outcome",
		},
		[]string{"outcome"}, // "resolved" / "no_url" / "fetch_failed"
	)

	AnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpusd",
			Name:      "answers_total",
			Help:      "Answers by grounding policy and outcome",
		},
		[]string{"policy", "outcome"}, // outcome: "grounded" / "refusal" / "error"
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingTokensTotal)
	prometheus.MustRegister(EmbeddingErrorsTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(JobPollsTotal)
	prometheus.MustRegister(CitationsResolvedTotal)
	prometheus.MustRegister(AnswersTotal)
	pipelineMetricsRegistered = true
}
