package result

import "github.com/kailas-cloud/finrag/internal/domain/chunk"

// Result is a single nearest-neighbour hit returned by a vector store.
type Result struct {
	id       string
	content  string
	metadata chunk.Metadata
	distance float64
}

// New creates a search result. distance is the cosine distance reported by the store.
func New(id, content string, metadata chunk.Metadata, distance float64) Result {
	return Result{id: id, content: content, metadata: metadata, distance: distance}
}

// ID returns the chunk identifier.
func (r *Result) ID() string { return r.id }

// Content returns the chunk text.
func (r *Result) Content() string { return r.content }

// Metadata returns the chunk metadata.
func (r *Result) Metadata() chunk.Metadata { return r.metadata }

// Distance returns the raw store distance (lower is closer).
func (r *Result) Distance() float64 { return r.distance }

// Score returns the similarity, 1 - distance.
func (r *Result) Score() float64 { return 1 - r.distance }
