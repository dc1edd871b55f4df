package search

import (
	"context"

	"github.com/kailas-cloud/finrag/internal/domain/search/result"
)

// Querier runs a text similarity query against the vector store.
// Results are ordered by ascending distance.
type Querier interface {
	Query(ctx context.Context, text string, n int) ([]result.Result, error)
}
