package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/finrag/internal/domain"
	"github.com/kailas-cloud/finrag/internal/domain/search/result"
)

// Default result limits.
const (
	DefaultNResults = 5
	MaxNResults     = 50
)

// Request is a semantic search over the chunk collection.
type Request struct {
	Query           string
	NResults        int
	IncludeMetadata bool
}

// Service handles semantic search over stored chunks.
type Service struct {
	store    Querier
	defaultN int
	maxN     int
}

// New creates a search service.
func New(store Querier) *Service {
	return &Service{store: store, defaultN: DefaultNResults, maxN: MaxNResults}
}

// WithLimits configures the default and maximum result count.
func (s *Service) WithLimits(defaultN, maxN int) *Service {
	if maxN > 0 {
		s.maxN = maxN
	}
	if defaultN > 0 && defaultN <= s.maxN {
		s.defaultN = defaultN
	}
	return s
}

// Search validates req and returns hits ranked by similarity (1 - distance).
// NResults of zero selects the default.
func (s *Service) Search(ctx context.Context, req Request) ([]result.Result, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("query is required: %w", domain.ErrInvalidRequest)
	}

	n := req.NResults
	if n == 0 {
		n = s.defaultN
	}
	if n < 1 || n > s.maxN {
		return nil, fmt.Errorf("n_results must be between 1 and %d: %w", s.maxN, domain.ErrInvalidRequest)
	}

	results, err := s.store.Query(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("query vector store: %w", err)
	}
	if len(results) > n {
		results = results[:n]
	}

	if !req.IncludeMetadata {
		for i := range results {
			r := &results[i]
			results[i] = result.New(r.ID(), r.Content(), nil, r.Distance())
		}
	}
	return results, nil
}
