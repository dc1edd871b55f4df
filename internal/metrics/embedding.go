package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric exported by the service.
const Namespace = "finrag"

const embeddingSubsystem = "embedding"

// Embedding provider metrics. Provider calls are recorded by transport/openai,
// sub-batching by usecase/embedding and cache lookups by repository/embcache.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: embeddingSubsystem,
			Name:      "requests_total",
			Help:      "Embedding provider calls by outcome",
		},
		[]string{"provider", "model", "status"}, // "success" / "error"
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: embeddingSubsystem,
			Name:      "request_duration_seconds",
			Help:      "Embedding provider call latency",
			Buckets:   prometheus.ExponentialBuckets(0.025, 2, 10), // 25ms .. ~12.8s
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: embeddingSubsystem,
			Name:      "tokens_total",
			Help:      "Tokens billed by the embedding provider",
		},
		[]string{"provider", "model", "type"}, // "prompt" / "total"
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: embeddingSubsystem,
			Name:      "errors_total",
			Help:      "Embedding provider failures by kind",
		},
		[]string{"provider", "model", "error_type"},
	)

	EmbeddingBatchSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: embeddingSubsystem,
			Name:      "batch_size",
			Help:      "Chunks sent per provider sub-batch",
			Buckets:   []float64{1, 4, 16, 32, 64, 128, 256, 512},
		},
		[]string{"provider", "model"},
	)

	EmbeddingBatchesInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: embeddingSubsystem,
			Name:      "batches_in_flight",
			Help:      "Provider sub-batches currently awaiting a response",
		},
		[]string{"provider"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: embeddingSubsystem,
			Name:      "cache_total",
			Help:      "Embedding cache lookups",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var embeddingOnce sync.Once

// RegisterEmbeddingMetrics registers the embedding metrics with the default registry.
func RegisterEmbeddingMetrics() {
	embeddingOnce.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingBatchSize,
			EmbeddingBatchesInFlight,
			EmbeddingCacheTotal,
		)
	})
}
