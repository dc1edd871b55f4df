package ingest

import (
	"context"

	"github.com/kailas-cloud/finrag/internal/domain/batch"
	"github.com/kailas-cloud/finrag/internal/domain/chunk"
)

// Processor chunks files into per-file results.
type Processor interface {
	ProcessDirectory(ctx context.Context, dir string) ([]batch.Result, error)
	ProcessFiles(ctx context.Context, paths []string) ([]batch.Result, error)
}

// Sink embeds and stores chunks. Chunks with an existing id overwrite the stored record.
type Sink interface {
	AddChunks(ctx context.Context, chunks []chunk.DocumentChunk) error
}
