package memstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/finrag/internal/domain"
	"github.com/kailas-cloud/finrag/internal/domain/chunk"
)

// keywordEmbedder maps texts onto three axes by keyword so nearest neighbours are predictable.
type keywordEmbedder struct {
	err   error
	calls int
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.calls++
	if e.err != nil {
		return domain.EmbeddingResult{}, e.err
	}
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "budget"):
		return domain.EmbeddingResult{Embedding: []float32{1, 0.1, 0}}, nil
	case strings.Contains(t, "bill"):
		return domain.EmbeddingResult{Embedding: []float32{0.1, 1, 0}}, nil
	default:
		return domain.EmbeddingResult{Embedding: []float32{0, 0.1, 1}}, nil
	}
}

func newTestRepo(t *testing.T, path string) (*Repo, *keywordEmbedder) {
	t.Helper()
	emb := &keywordEmbedder{}
	vc := domain.DefaultVectorConfig()
	vc.Dimensions = 3
	r, err := New(emb, emb, Config{Collection: "chunks", Path: path, Vector: vc}, zap.NewNop())
	require.NoError(t, err)
	return r, emb
}

func mkChunk(t *testing.T, id, content string, n int) chunk.DocumentChunk {
	t.Helper()
	c, err := chunk.New(id, content, chunk.Metadata{
		chunk.KeyFilename:    "doc.txt",
		chunk.KeyDocType:     "financial",
		chunk.KeyChunkNumber: n,
	})
	require.NoError(t, err)
	return c
}

func seed(t *testing.T, r *Repo) {
	t.Helper()
	require.NoError(t, r.AddChunks(context.Background(), []chunk.DocumentChunk{
		mkChunk(t, "aaaaaaaaaaaa", "The budget grows.", 0),
		mkChunk(t, "bbbbbbbbbbbb", "House bill 12 passed.", 1),
		mkChunk(t, "cccccccccccc", "Weather was mild.", 2),
	}))
}

func TestNew_RequiresCollection(t *testing.T) {
	_, err := New(&keywordEmbedder{}, &keywordEmbedder{}, Config{}, nil)
	assert.Error(t, err)
}

func TestNew_RejectsNonCosineDistance(t *testing.T) {
	vc := domain.DefaultVectorConfig()
	vc.DistanceMetric = "L2"
	_, err := New(&keywordEmbedder{}, &keywordEmbedder{}, Config{Collection: "chunks", Vector: vc}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cosine")

	vc.DistanceMetric = "COSINE"
	_, err = New(&keywordEmbedder{}, &keywordEmbedder{}, Config{Collection: "chunks", Vector: vc}, nil)
	assert.NoError(t, err)
}

func TestQuery_NearestFirst(t *testing.T) {
	r, _ := newTestRepo(t, "")
	seed(t, r)

	res, err := r.Query(context.Background(), "budget outlook", 2)
	require.NoError(t, err)
	require.Len(t, res, 2)

	assert.Equal(t, "aaaaaaaaaaaa", res[0].ID())
	assert.Equal(t, "The budget grows.", res[0].Content())
	assert.InDelta(t, 0.0, res[0].Distance(), 1e-5)
	assert.LessOrEqual(t, res[0].Distance(), res[1].Distance())

	n, ok := res[0].Metadata().Int(chunk.KeyChunkNumber)
	assert.True(t, ok)
	assert.Equal(t, 0, n)
}

func TestQuery_ClampsToCount(t *testing.T) {
	r, _ := newTestRepo(t, "")
	seed(t, r)

	res, err := r.Query(context.Background(), "bill", 50)
	require.NoError(t, err)
	assert.Len(t, res, 3)
	assert.Equal(t, "bbbbbbbbbbbb", res[0].ID())
}

func TestQuery_EmptyCollection(t *testing.T) {
	r, emb := newTestRepo(t, "")

	res, err := r.Query(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.Zero(t, emb.calls, "empty collection should not embed the query")
}

func TestAddChunks_OverwritesSameID(t *testing.T) {
	r, _ := newTestRepo(t, "")
	ctx := context.Background()

	require.NoError(t, r.AddChunks(ctx, []chunk.DocumentChunk{mkChunk(t, "aaaaaaaaaaaa", "old budget text.", 0)}))
	require.NoError(t, r.AddChunks(ctx, []chunk.DocumentChunk{mkChunk(t, "aaaaaaaaaaaa", "new budget text.", 0)}))

	st, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.DocumentCount)

	got, err := r.Get(ctx, "aaaaaaaaaaaa")
	require.NoError(t, err)
	assert.Equal(t, "new budget text.", got.Content())
}

func TestAddChunks_EmbedError(t *testing.T) {
	r, emb := newTestRepo(t, "")
	emb.err = domain.ErrRateLimited

	err := r.AddChunks(context.Background(), []chunk.DocumentChunk{mkChunk(t, "aaaaaaaaaaaa", "x.", 0)})
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestGet_RoundTripsMetadata(t *testing.T) {
	r, _ := newTestRepo(t, "")
	seed(t, r)

	got, err := r.Get(context.Background(), "bbbbbbbbbbbb")
	require.NoError(t, err)
	assert.Equal(t, "doc.txt", got.Filename())
	assert.Equal(t, 1, got.Number())
	assert.Equal(t, "bbbbbbbbbbbb", got.Metadata().String(chunk.KeyChunkID))
}

func TestGet_NotFound(t *testing.T) {
	r, _ := newTestRepo(t, "")

	_, err := r.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrChunkNotFound))
}

func TestReset_EmptiesCollection(t *testing.T) {
	r, _ := newTestRepo(t, "")
	seed(t, r)
	ctx := context.Background()

	require.NoError(t, r.Reset(ctx))

	st, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.DocumentCount)
	assert.Equal(t, "chunks", st.Name)

	// still usable after reset
	seed(t, r)
	st, _ = r.Stats(ctx)
	assert.Equal(t, 3, st.DocumentCount)
}

func TestPersistence_ReopenKeepsChunks(t *testing.T) {
	dir := t.TempDir()
	r, _ := newTestRepo(t, dir)
	seed(t, r)

	reopened, _ := newTestRepo(t, dir)
	st, err := reopened.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, st.DocumentCount)
}

func TestPing(t *testing.T) {
	r, _ := newTestRepo(t, "")
	assert.NoError(t, r.Ping(context.Background()))
}
