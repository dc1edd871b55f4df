// Package embcache caches embedding vectors in Redis/Valkey so re-ingesting a document
// does not pay for the same chunk twice.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/finrag/internal/db"
	"github.com/kailas-cloud/finrag/internal/domain"
)

var keyPrefix = domain.KeyPrefix + "emb_cache:"

// DefaultTTL bounds how long a cached vector lives.
const DefaultTTL = 7 * 24 * time.Hour

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	SetMultiWithTTL(ctx context.Context, entries []db.Entry, ttl time.Duration) error
}

// CachedEmbedder serves vectors from a key-value store and embeds only misses.
// Cache failures are logged and degrade to a miss; they never fail the call.
type CachedEmbedder struct {
	inner      domain.Embedder
	store      store
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
	namespace  string
	ttl        time.Duration
	dimensions int
}

// New creates a caching decorator. cacheTotal may be nil; when set it is
// incremented with label "hit" or "miss".
func New(inner domain.Embedder, s store, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		inner:      inner,
		store:      s,
		cacheTotal: cacheTotal,
		logger:     logger,
		ttl:        DefaultTTL,
	}
}

// WithNamespace scopes keys, typically by model, so vectors from different models never mix.
func (c *CachedEmbedder) WithNamespace(ns string) *CachedEmbedder {
	c.namespace = ns
	return c
}

// WithTTL overrides DefaultTTL. Zero keeps entries forever.
func (c *CachedEmbedder) WithTTL(ttl time.Duration) *CachedEmbedder {
	c.ttl = ttl
	return c
}

// WithDimensions makes entries of any other length count as misses, so a
// dimension change in config cannot serve stale vectors.
func (c *CachedEmbedder) WithDimensions(n int) *CachedEmbedder {
	c.dimensions = n
	return c
}

// Embed returns the cached vector for text or embeds and stores it.
// A hit reports zero tokens.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.key(text)

	data, err := c.store.Get(ctx, key)
	if err != nil && !errors.Is(err, db.ErrKeyNotFound) {
		c.logger.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
	}
	if vec, ok := c.decode(key, data); ok {
		c.count("hit", 1)
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	c.count("miss", 1)

	res, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	if len(res.Embedding) > 0 {
		if err := c.store.SetWithTTL(ctx, key, encode(res.Embedding), c.ttl); err != nil {
			c.logger.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return res, nil
}

// BatchEmbed reads all keys in one pipeline, embeds the distinct missing texts
// in one call and writes them back in one pipeline. Output order matches texts.
func (c *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = c.key(t)
	}

	cached, err := c.store.GetMulti(ctx, keys)
	if err != nil {
		c.logger.Warn("Embedding cache batch read failed", zap.Int("keys", len(keys)), zap.Error(err))
		cached = nil
	}

	out := make([][]float32, len(texts))
	// distinct misses: key -> positions in texts
	pending := make(map[string][]int)
	var missKeys, missTexts []string
	hits := 0
	for i, key := range keys {
		if cached != nil {
			if vec, ok := c.decode(key, cached[i]); ok {
				out[i] = vec
				hits++
				continue
			}
		}
		if _, seen := pending[key]; !seen {
			missKeys = append(missKeys, key)
			missTexts = append(missTexts, texts[i])
		}
		pending[key] = append(pending[key], i)
	}
	c.count("hit", hits)
	c.count("miss", len(missTexts))

	if len(missTexts) == 0 {
		return domain.BatchEmbeddingResult{Embeddings: out}, nil
	}

	res, err := domain.EmbedAll(ctx, c.inner, missTexts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed cache misses: %w", err)
	}

	entries := make([]db.Entry, 0, len(missKeys))
	for j, key := range missKeys {
		for _, i := range pending[key] {
			out[i] = res.Embeddings[j]
		}
		if len(res.Embeddings[j]) > 0 {
			entries = append(entries, db.Entry{Key: key, Value: encode(res.Embeddings[j])})
		}
	}
	if err := c.store.SetMultiWithTTL(ctx, entries, c.ttl); err != nil {
		c.logger.Warn("Embedding cache batch write failed", zap.Int("keys", len(entries)), zap.Error(err))
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   out,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// HealthCheck forwards to the inner embedder when it can be checked.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

func (c *CachedEmbedder) count(result string, n int) {
	if c.cacheTotal != nil && n > 0 {
		c.cacheTotal.WithLabelValues(result).Add(float64(n))
	}
}

func (c *CachedEmbedder) key(text string) string {
	h := sha256.Sum256([]byte(text))
	if c.namespace == "" {
		return keyPrefix + hex.EncodeToString(h[:])
	}
	return keyPrefix + c.namespace + ":" + hex.EncodeToString(h[:])
}

// decode turns a stored value into a vector; corrupt or mis-sized entries are misses.
func (c *CachedEmbedder) decode(key string, data []byte) ([]float32, bool) {
	if len(data) == 0 {
		return nil, false
	}
	if len(data)%4 != 0 {
		c.logger.Warn("Corrupt embedding cache entry", zap.String("key", key), zap.Int("bytes", len(data)))
		return nil, false
	}
	vec := db.DecodeVector(string(data))
	if c.dimensions > 0 && len(vec) != c.dimensions {
		c.logger.Debug("Embedding cache entry has wrong dimensions",
			zap.String("key", key), zap.Int("got", len(vec)), zap.Int("want", c.dimensions))
		return nil, false
	}
	return vec, true
}

func encode(v []float32) []byte {
	return []byte(db.EncodeVector(v))
}
