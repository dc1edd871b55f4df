package chi

import (
	"context"

	"github.com/kailas-cloud/finrag/internal/domain"
	"github.com/kailas-cloud/finrag/internal/domain/chunk"
	"github.com/kailas-cloud/finrag/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/finrag/internal/usecase/health"
	"github.com/kailas-cloud/finrag/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/finrag/internal/usecase/search"
)

// Collections serves stats, reset and lookup of stored chunks.
type Collections interface {
	Stats(ctx context.Context) (domain.CollectionStats, error)
	Reset(ctx context.Context) error
	Get(ctx context.Context, id string) (chunk.DocumentChunk, error)
}

// Searcher runs semantic search.
type Searcher interface {
	Search(ctx context.Context, req searchuc.Request) ([]result.Result, error)
}

// Ingester ingests uploaded files and server-side directories.
type Ingester interface {
	IngestDirectory(ctx context.Context, dir string) (ingest.Report, error)
	IngestUploads(ctx context.Context, uploads []ingest.Upload) (ingest.Report, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
