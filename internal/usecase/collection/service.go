package collection

import (
	"context"
	"fmt"
	"regexp"

	"github.com/kailas-cloud/finrag/internal/domain"
	"github.com/kailas-cloud/finrag/internal/domain/chunk"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,256}$`)

// Service exposes stats, reset and lookup over the chunk collection.
type Service struct {
	repo Repository
}

// New creates a collection service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Stats returns the collection name, chunk count and embedding settings.
func (s *Service) Stats(ctx context.Context) (domain.CollectionStats, error) {
	st, err := s.repo.Stats(ctx)
	if err != nil {
		return domain.CollectionStats{}, fmt.Errorf("collection stats: %w", err)
	}
	return st, nil
}

// Reset deletes every stored chunk and leaves an empty collection behind.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.repo.Reset(ctx); err != nil {
		return fmt.Errorf("reset collection: %w", err)
	}
	return nil
}

// Get retrieves one chunk by id.
func (s *Service) Get(ctx context.Context, id string) (chunk.DocumentChunk, error) {
	if !idRegex.MatchString(id) {
		return chunk.DocumentChunk{}, fmt.Errorf("invalid document id %q: %w", id, domain.ErrInvalidRequest)
	}

	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return chunk.DocumentChunk{}, fmt.Errorf("get document: %w", err)
	}
	return c, nil
}
