package metrics

import "github.com/prometheus/client_golang/prometheus"

// Document pipeline Prometheus metrics.
var (
	DocumentsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "documents_processed_total",
			Help:      "Documents run through the chunking pipeline",
		},
		[]string{"doc_type", "status"}, // "ok" / "error"
	)

	ChunksCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "chunks_created_total",
			Help:      "Chunks produced by the chunking pipeline",
		},
		[]string{"doc_type"},
	)

	ChunkSizeChars = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "chunk_size_chars",
			Help:      "Chunk content length in characters",
			Buckets:   []float64{50, 100, 250, 500, 750, 1000, 1500, 2000, 4000},
		},
		[]string{"doc_type"},
	)

	DocumentProcessDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "document_process_duration_seconds",
			Help:      "Time to load, extract and chunk one document",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"doc_type"},
	)

	StoreOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "store_operations_total",
			Help:      "Vector store operations by outcome",
		},
		[]string{"op", "status"},
	)
)

var ingestMetricsRegistered bool

// RegisterIngestMetrics registers the document pipeline metrics. Must be called once from main.
func RegisterIngestMetrics() {
	if ingestMetricsRegistered {
		return
	}
	prometheus.MustRegister(DocumentsProcessedTotal)
	prometheus.MustRegister(ChunksCreatedTotal)
	prometheus.MustRegister(ChunkSizeChars)
	prometheus.MustRegister(DocumentProcessDuration)
	prometheus.MustRegister(StoreOperationsTotal)
	ingestMetricsRegistered = true
}
