// Package embedding holds the embedder decorators shared by ingestion and search.
package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/finrag/internal/domain"
	"github.com/kailas-cloud/finrag/internal/metrics"
)

const (
	// DefaultMaxBatchSize is the largest number of texts sent in one provider call.
	DefaultMaxBatchSize = 256
	// DefaultConcurrency is how many sub-batches may be in flight at once.
	DefaultConcurrency = 1
)

// BatchingEmbedder splits large batches into provider-sized sub-batches,
// sends up to concurrency of them at a time and records per-request usage.
// Provider metrics (requests, latency, tokens) are recorded in transport/openai.
type BatchingEmbedder struct {
	inner        domain.Embedder
	provider     string
	model        string
	maxBatchSize int
	concurrency  int
	logger       *zap.Logger
}

// NewBatchingEmbedder wraps inner.
func NewBatchingEmbedder(inner domain.Embedder, provider, model string, logger *zap.Logger) *BatchingEmbedder {
	return &BatchingEmbedder{
		inner:        inner,
		provider:     provider,
		model:        model,
		maxBatchSize: DefaultMaxBatchSize,
		concurrency:  DefaultConcurrency,
		logger:       logger,
	}
}

// WithMaxBatchSize caps the number of texts per provider call.
func (b *BatchingEmbedder) WithMaxBatchSize(n int) *BatchingEmbedder {
	if n > 0 {
		b.maxBatchSize = n
	}
	return b
}

// WithConcurrency sets how many sub-batches may run in parallel.
func (b *BatchingEmbedder) WithConcurrency(n int) *BatchingEmbedder {
	if n > 0 {
		b.concurrency = n
	}
	return b
}

// Embed delegates a single text and adds its tokens to the request usage.
func (b *BatchingEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	res, err := b.inner.Embed(ctx, text)
	if err != nil {
		b.logger.Error("Embedding failed",
			zap.String("provider", b.provider),
			zap.String("model", b.model),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
	return res, nil
}

// BatchEmbed embeds texts in sub-batches of at most maxBatchSize.
// Vectors come back in input order; the first failing sub-batch cancels the rest.
func (b *BatchingEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()
	parts := split(texts, b.maxBatchSize)
	results := make([]domain.BatchEmbeddingResult, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	inFlight := metrics.EmbeddingBatchesInFlight.WithLabelValues(b.provider)

	for i, part := range parts {
		g.Go(func() error {
			inFlight.Inc()
			defer inFlight.Dec()
			metrics.EmbeddingBatchSize.WithLabelValues(b.provider, b.model).Observe(float64(len(part)))

			res, err := domain.EmbedAll(gctx, b.inner, part)
			if err != nil {
				b.logger.Error("Embedding sub-batch failed",
					zap.String("provider", b.provider),
					zap.String("model", b.model),
					zap.Int("sub_batch", i),
					zap.Int("size", len(part)),
					zap.Error(err),
				)
				return fmt.Errorf("sub-batch %d: %w", i, err)
			}
			results[i] = res
			domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}

	out := merge(results, len(texts))
	b.logger.Debug("Batch embedded",
		zap.String("provider", b.provider),
		zap.String("model", b.model),
		zap.Int("texts", len(texts)),
		zap.Int("sub_batches", len(parts)),
		zap.Int("total_tokens", out.TotalTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// HealthCheck forwards to the inner embedder when it can be checked.
func (b *BatchingEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := b.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

func split(texts []string, size int) [][]string {
	parts := make([][]string, 0, (len(texts)+size-1)/size)
	for lo := 0; lo < len(texts); lo += size {
		parts = append(parts, texts[lo:min(lo+size, len(texts))])
	}
	return parts
}

func merge(results []domain.BatchEmbeddingResult, n int) domain.BatchEmbeddingResult {
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, 0, n)}
	for _, r := range results {
		out.Embeddings = append(out.Embeddings, r.Embeddings...)
		out.PromptTokens += r.PromptTokens
		out.TotalTokens += r.TotalTokens
	}
	return out
}
