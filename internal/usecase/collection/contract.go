package collection

import (
	"context"

	"github.com/kailas-cloud/finrag/internal/domain"
	"github.com/kailas-cloud/finrag/internal/domain/chunk"
)

// Repository defines the collection-level contract of the vector store.
type Repository interface {
	Stats(ctx context.Context) (domain.CollectionStats, error)
	Reset(ctx context.Context) error
	Get(ctx context.Context, id string) (chunk.DocumentChunk, error)
}
