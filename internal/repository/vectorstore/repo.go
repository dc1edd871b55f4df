// Package vectorstore keeps document chunks in a Redis 8 or valkey-search FT index.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/finrag/internal/db"
	"github.com/kailas-cloud/finrag/internal/domain"
	"github.com/kailas-cloud/finrag/internal/domain/chunk"
	"github.com/kailas-cloud/finrag/internal/domain/search/result"
	"github.com/kailas-cloud/finrag/internal/metrics"
)

// Hash field names of a stored chunk.
const (
	fieldContent     = "__content"
	fieldVector      = db.DefaultVectorField
	fieldMetadata    = "__metadata"
	fieldFilename    = chunk.KeyFilename
	fieldDocType     = chunk.KeyDocType
	fieldChunkNumber = chunk.KeyChunkNumber
)

// store is the consumer interface for the vector store (ISP).
//
//nolint:interfacebloat // repo needs hash, index and search operations
type store interface {
	Ping(ctx context.Context) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Config selects the collection and its vector schema.
type Config struct {
	Collection string
	KeyPrefix  string // defaults to domain.KeyPrefix
	Vector     domain.VectorConfig
	// TextSearch adds a TEXT index on chunk content; valkey-search 1.0 has no TEXT support.
	TextSearch bool
	// HNSW tunes the vector index; ignored for FLAT.
	HNSW db.HNSWParams
}

// Repo implements the ingest sink, the search querier and the collection repository.
type Repo struct {
	store      store
	docs       domain.Embedder
	queries    domain.Embedder
	collection string
	prefix     string
	vector     domain.VectorConfig
	distance   db.DistanceMetric
	algo       db.VectorAlgorithm
	textSearch bool
	hnsw       db.HNSWParams
	logger     *zap.Logger
}

// New creates a vector store repository. docs embeds chunks, queries embeds search text;
// they differ only when the model takes asymmetric instructions.
func New(s store, docs, queries domain.Embedder, cfg Config, logger *zap.Logger) (*Repo, error) {
	if cfg.Collection == "" {
		return nil, errors.New("collection name is required")
	}
	if cfg.Vector.Dimensions <= 0 {
		return nil, errors.New("vector dimensions must be positive")
	}
	distance, err := db.ParseDistance(cfg.Vector.DistanceMetric)
	if err != nil {
		return nil, err
	}
	algo, err := db.ParseAlgorithm(cfg.Vector.Algorithm)
	if err != nil {
		return nil, err
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = domain.KeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Repo{
		store:      s,
		docs:       docs,
		queries:    queries,
		collection: cfg.Collection,
		prefix:     prefix,
		vector:     cfg.Vector,
		distance:   distance,
		algo:       algo,
		textSearch: cfg.TextSearch,
		hnsw:       cfg.HNSW,
		logger:     logger,
	}, nil
}

// EnsureCollection creates the FT index if it is missing.
func (r *Repo) EnsureCollection(ctx context.Context) error {
	def, err := r.indexDefinition()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	err = r.store.CreateIndex(ctx, def)
	switch {
	case errors.Is(err, db.ErrIndexExists):
		return nil
	case err != nil:
		observe("create_index", err)
		return fmt.Errorf("create index %s: %w: %w", def.Name, domain.ErrStoreUnavailable, err)
	}
	r.logger.Info("Created vector index", zap.Stringer("schema", def))
	return nil
}

// AddChunks embeds all chunks in one batch and writes them in one pipeline.
// A chunk whose id is already stored replaces the old record.
func (r *Repo) AddChunks(ctx context.Context, chunks []chunk.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content()
	}

	emb, err := domain.EmbedAll(ctx, r.docs, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	items := make([]db.HashSetItem, len(chunks))
	for i := range chunks {
		fields, err := r.hashFields(&chunks[i], emb.Embeddings[i])
		if err != nil {
			return err
		}
		items[i] = db.HashSetItem{Key: r.chunkKey(chunks[i].ID()), Fields: fields}
	}

	err = r.store.HSetMulti(ctx, items)
	observe("add", err)
	if err != nil {
		return fmt.Errorf("store chunks: %w: %w", domain.ErrStoreUnavailable, err)
	}

	r.logger.Debug("Chunks stored",
		zap.String("collection", r.collection),
		zap.Int("count", len(items)),
		zap.Int("tokens", emb.TotalTokens),
	)
	return nil
}

// Query embeds text and returns the n nearest chunks, closest first.
func (r *Repo) Query(ctx context.Context, text string, n int) ([]result.Result, error) {
	emb, err := r.queries.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(),
		VectorField:  fieldVector,
		Vector:       emb.Embedding,
		K:            n,
		ReturnFields: []string{fieldContent, fieldMetadata},
	})
	observe("query", err)
	if err != nil {
		return nil, fmt.Errorf("knn search: %w: %w", domain.ErrStoreUnavailable, err)
	}

	out := make([]result.Result, 0, len(res.Entries))
	for _, e := range res.Entries {
		md, err := chunk.DecodeMetadata([]byte(e.Fields[fieldMetadata]))
		if err != nil {
			r.logger.Warn("Skipping hit with unreadable metadata", zap.String("key", e.Key), zap.Error(err))
			continue
		}
		out = append(out, result.New(r.idFromKey(e.Key), e.Fields[fieldContent], md, e.Distance))
	}
	return out, nil
}

// Get reads one chunk by id.
func (r *Repo) Get(ctx context.Context, id string) (chunk.DocumentChunk, error) {
	m, err := r.store.HGetAll(ctx, r.chunkKey(id))
	if errors.Is(err, db.ErrKeyNotFound) {
		observe("get", nil)
		return chunk.DocumentChunk{}, fmt.Errorf("chunk %s: %w", id, domain.ErrChunkNotFound)
	}
	observe("get", err)
	if err != nil {
		return chunk.DocumentChunk{}, fmt.Errorf("get chunk %s: %w: %w", id, domain.ErrStoreUnavailable, err)
	}

	md, err := chunk.DecodeMetadata([]byte(m[fieldMetadata]))
	if err != nil {
		return chunk.DocumentChunk{}, fmt.Errorf("chunk %s: %w", id, err)
	}
	return chunk.Reconstruct(id, m[fieldContent], md), nil
}

// Stats reports the chunk count and the embedding settings of the collection.
func (r *Repo) Stats(ctx context.Context) (domain.CollectionStats, error) {
	count, err := r.store.SearchCount(ctx, r.indexName(), "*")
	if errors.Is(err, db.ErrIndexNotFound) {
		count, err = 0, nil
	}
	observe("count", err)
	if err != nil {
		return domain.CollectionStats{}, fmt.Errorf("count chunks: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return domain.CollectionStats{
		Name:                r.collection,
		DocumentCount:       count,
		EmbeddingModel:      r.vector.Model,
		EmbeddingDimensions: r.vector.Dimensions,
	}, nil
}

// Reset drops every stored chunk and recreates an empty index.
func (r *Repo) Reset(ctx context.Context) error {
	err := r.store.DropIndex(ctx, r.indexName(), true)
	if err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		observe("reset", err)
		return fmt.Errorf("drop index: %w: %w", domain.ErrStoreUnavailable, err)
	}
	observe("reset", nil)

	r.logger.Info("Collection reset", zap.String("collection", r.collection))
	return r.EnsureCollection(ctx)
}

// Ping checks store connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *Repo) hashFields(c *chunk.DocumentChunk, vec []float32) (map[string]string, error) {
	if len(vec) != r.vector.Dimensions {
		return nil, fmt.Errorf("chunk %s: got %d-dim vector, index expects %d: %w",
			c.ID(), len(vec), r.vector.Dimensions, domain.ErrEmbeddingProviderError)
	}
	md := c.Metadata()
	raw, err := chunk.EncodeMetadata(md)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", c.ID(), err)
	}
	return map[string]string{
		fieldContent:     c.Content(),
		fieldVector:      db.EncodeVector(vec),
		fieldMetadata:    string(raw),
		fieldFilename:    c.Filename(),
		fieldDocType:     c.DocType(),
		fieldChunkNumber: strconv.Itoa(c.Number()),
	}, nil
}

func (r *Repo) indexDefinition() (*db.IndexDefinition, error) {
	b := db.NewIndex(r.indexName()).
		Prefix(r.keyPrefix()).
		Tag(fieldFilename).
		Tag(fieldDocType).
		Numeric(fieldChunkNumber)
	if r.textSearch {
		b = b.Text(fieldContent)
	}
	b = b.Vector(fieldVector, r.vector.Dimensions, r.algo, r.distance)
	if r.algo == db.VectorHNSW {
		b = b.HNSW(r.hnsw)
	}
	return b.Build()
}

func (r *Repo) keyPrefix() string        { return r.prefix + r.collection + ":" }
func (r *Repo) indexName() string        { return r.prefix + r.collection + ":idx" }
func (r *Repo) chunkKey(id string) string { return r.keyPrefix() + id }

func (r *Repo) idFromKey(key string) string {
	return strings.TrimPrefix(key, r.keyPrefix())
}

func observe(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.StoreOperationsTotal.WithLabelValues(op, status).Inc()
}
