package collection

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/finrag/internal/domain"
	"github.com/kailas-cloud/finrag/internal/domain/chunk"
)

// --- Mocks ---

type mockRepo struct {
	stats    domain.CollectionStats
	statsErr error
	resetErr error
	resets   int
	got      chunk.DocumentChunk
	getErr   error
	gotID    string
}

func (m *mockRepo) Stats(_ context.Context) (domain.CollectionStats, error) {
	return m.stats, m.statsErr
}

func (m *mockRepo) Reset(_ context.Context) error {
	m.resets++
	return m.resetErr
}

func (m *mockRepo) Get(_ context.Context, id string) (chunk.DocumentChunk, error) {
	m.gotID = id
	return m.got, m.getErr
}

// --- Tests ---

func TestStats(t *testing.T) {
	repo := &mockRepo{stats: domain.CollectionStats{
		Name: "financial_documents", DocumentCount: 12,
		EmbeddingModel: "text-embedding-3-small", EmbeddingDimensions: 1536,
	}}

	st, err := New(repo).Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.DocumentCount != 12 || st.Name != "financial_documents" {
		t.Errorf("stats = %+v", st)
	}
}

func TestStats_Error(t *testing.T) {
	repo := &mockRepo{statsErr: domain.ErrStoreUnavailable}

	_, err := New(repo).Stats(context.Background())
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("err = %v", err)
	}
}

func TestReset(t *testing.T) {
	repo := &mockRepo{}
	if err := New(repo).Reset(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.resets != 1 {
		t.Errorf("resets = %d", repo.resets)
	}

	repo.resetErr = errors.New("drop failed")
	if err := New(repo).Reset(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestGet(t *testing.T) {
	c := chunk.Reconstruct("0a1b2c3d4e5f", "text", nil)
	repo := &mockRepo{got: c}

	got, err := New(repo).Get(context.Background(), "0a1b2c3d4e5f")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID() != "0a1b2c3d4e5f" {
		t.Errorf("ID() = %q", got.ID())
	}
}

func TestGet_InvalidID(t *testing.T) {
	for _, id := range []string{"", "a b", "../x", "id:with:colons"} {
		repo := &mockRepo{}
		_, err := New(repo).Get(context.Background(), id)
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("Get(%q) err = %v, want ErrInvalidRequest", id, err)
		}
		if repo.gotID != "" {
			t.Errorf("repo must not be called for %q", id)
		}
	}
}

func TestGet_NotFound(t *testing.T) {
	repo := &mockRepo{getErr: domain.ErrChunkNotFound}

	_, err := New(repo).Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrChunkNotFound) {
		t.Errorf("err = %v, want ErrChunkNotFound", err)
	}
}
