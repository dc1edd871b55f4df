// Package memstore keeps document chunks in an embedded chromem-go collection,
// optionally persisted to disk. It needs no external server.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/finrag/internal/domain"
	"github.com/kailas-cloud/finrag/internal/domain/chunk"
	"github.com/kailas-cloud/finrag/internal/domain/search/result"
	"github.com/kailas-cloud/finrag/internal/metrics"
)

const metadataField = "__metadata"

// Config selects the collection and optional persistence directory.
type Config struct {
	Collection string
	// Path persists the database as gob files under this directory; empty keeps it in memory.
	Path   string
	Vector domain.VectorConfig
}

// Repo implements the ingest sink, the search querier and the collection repository.
type Repo struct {
	db      *chromem.DB
	docs    domain.Embedder
	queries domain.Embedder
	name    string
	vector  domain.VectorConfig
	logger  *zap.Logger

	mu   sync.RWMutex
	coll *chromem.Collection
}

// New opens (or creates) the chromem database and the chunk collection.
func New(docs, queries domain.Embedder, cfg Config, logger *zap.Logger) (*Repo, error) {
	if cfg.Collection == "" {
		return nil, errors.New("collection name is required")
	}
	// chromem ranks by cosine similarity only.
	if m := cfg.Vector.DistanceMetric; m != "" && !strings.EqualFold(m, "cosine") {
		return nil, fmt.Errorf("memory store supports only cosine distance, got %q", m)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		cdb *chromem.DB
		err error
	)
	if cfg.Path != "" {
		cdb, err = chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, fmt.Errorf("open chromem db %s: %w", cfg.Path, err)
		}
	} else {
		cdb = chromem.NewDB()
	}

	r := &Repo{
		db:      cdb,
		docs:    docs,
		queries: queries,
		name:    cfg.Collection,
		vector:  cfg.Vector,
		logger:  logger,
	}
	if err := r.EnsureCollection(context.Background()); err != nil {
		return nil, err
	}
	return r, nil
}

// EnsureCollection opens the collection, creating it when missing.
func (r *Repo) EnsureCollection(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openLocked()
}

func (r *Repo) openLocked() error {
	coll, err := r.db.GetOrCreateCollection(r.name, nil, r.embeddingFunc())
	if err != nil {
		return fmt.Errorf("open collection %s: %w", r.name, err)
	}
	r.coll = coll
	return nil
}

// embeddingFunc adapts the document embedder for chromem. AddChunks passes precomputed
// vectors, so chromem only falls back to it for documents without one.
func (r *Repo) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		res, err := r.docs.Embed(ctx, text)
		if err != nil {
			return nil, err //nolint:wrapcheck // chromem wraps it
		}
		return res.Embedding, nil
	}
}

func (r *Repo) collection() *chromem.Collection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.coll
}

// AddChunks embeds all chunks in one batch and adds them. Existing ids are overwritten.
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

	docs := make([]chromem.Document, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		md, err := toChromemMetadata(c.Metadata())
		if err != nil {
			return fmt.Errorf("chunk %s: %w", c.ID(), err)
		}
		docs[i] = chromem.Document{
			ID:        c.ID(),
			Content:   c.Content(),
			Metadata:  md,
			Embedding: emb.Embeddings[i],
		}
	}

	err = r.collection().AddDocuments(ctx, docs, runtime.NumCPU())
	observe("add", err)
	if err != nil {
		return fmt.Errorf("add documents: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Query embeds text and returns up to n nearest chunks, closest first.
func (r *Repo) Query(ctx context.Context, text string, n int) ([]result.Result, error) {
	coll := r.collection()
	// chromem rejects nResults above the collection size.
	n = min(n, coll.Count())
	if n <= 0 {
		return []result.Result{}, nil
	}

	emb, err := r.queries.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := coll.QueryEmbedding(ctx, emb.Embedding, n, nil, nil)
	observe("query", err)
	if err != nil {
		return nil, fmt.Errorf("query: %w: %w", domain.ErrStoreUnavailable, err)
	}

	out := make([]result.Result, 0, len(hits))
	for _, h := range hits {
		md, err := fromChromemMetadata(h.Metadata)
		if err != nil {
			r.logger.Warn("Skipping hit with unreadable metadata", zap.String("id", h.ID), zap.Error(err))
			continue
		}
		out = append(out, result.New(h.ID, h.Content, md, 1-float64(h.Similarity)))
	}
	return out, nil
}

// Get reads one chunk by id.
func (r *Repo) Get(ctx context.Context, id string) (chunk.DocumentChunk, error) {
	doc, err := r.collection().GetByID(ctx, id)
	observe("get", err)
	if err != nil {
		// chromem reports a missing id and an empty id the same way.
		return chunk.DocumentChunk{}, fmt.Errorf("chunk %s: %w", id, domain.ErrChunkNotFound)
	}
	md, err := fromChromemMetadata(doc.Metadata)
	if err != nil {
		return chunk.DocumentChunk{}, fmt.Errorf("chunk %s: %w", id, err)
	}
	return chunk.Reconstruct(doc.ID, doc.Content, md), nil
}

// Stats reports the chunk count and the embedding settings of the collection.
func (r *Repo) Stats(_ context.Context) (domain.CollectionStats, error) {
	return domain.CollectionStats{
		Name:                r.name,
		DocumentCount:       r.collection().Count(),
		EmbeddingModel:      r.vector.Model,
		EmbeddingDimensions: r.vector.Dimensions,
	}, nil
}

// Reset deletes the collection and opens a fresh empty one.
func (r *Repo) Reset(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.db.DeleteCollection(r.name)
	observe("reset", err)
	if err != nil {
		return fmt.Errorf("delete collection: %w: %w", domain.ErrStoreUnavailable, err)
	}
	r.logger.Info("Collection reset", zap.String("collection", r.name))
	return r.openLocked()
}

// Ping always succeeds; the store lives in-process.
func (r *Repo) Ping(_ context.Context) error { return nil }

// toChromemMetadata keeps typed metadata as JSON and mirrors the string fields
// chromem can filter on.
func toChromemMetadata(md chunk.Metadata) (map[string]string, error) {
	raw, err := chunk.EncodeMetadata(md)
	if err != nil {
		return nil, err
	}
	out := map[string]string{metadataField: string(raw)}
	for _, k := range []string{chunk.KeyFilename, chunk.KeyDocType} {
		if v := md.String(k); v != "" {
			out[k] = v
		}
	}
	return out, nil
}

func fromChromemMetadata(m map[string]string) (chunk.Metadata, error) {
	return chunk.DecodeMetadata([]byte(m[metadataField]))
}

func observe(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.StoreOperationsTotal.WithLabelValues(op, status).Inc()
}
