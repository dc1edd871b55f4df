package domain

import (
	"context"
	"fmt"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder is implemented by embedders that vectorize many texts per call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult is one vector and the tokens it cost. Cache hits cost zero.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult holds one vector per input text, in input order.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// Dimensions is the common vector length, or 0 for an empty batch.
func (r BatchEmbeddingResult) Dimensions() int {
	if len(r.Embeddings) == 0 {
		return 0
	}
	return len(r.Embeddings[0])
}

// EmbedAll vectorizes texts through BatchEmbed when e supports it and one
// text at a time otherwise. A result with the wrong vector count, or with
// vectors of differing lengths, is a provider error.
func EmbedAll(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return BatchEmbeddingResult{}, nil
	}

	var (
		res BatchEmbeddingResult
		err error
	)
	if be, ok := e.(BatchEmbedder); ok {
		res, err = be.BatchEmbed(ctx, texts)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
		}
	} else if res, err = embedEach(ctx, e, texts); err != nil {
		return BatchEmbeddingResult{}, err
	}

	if err := checkShape(res, len(texts)); err != nil {
		return BatchEmbeddingResult{}, err
	}
	return res, nil
}

func embedEach(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	out := BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("embed text %d: %w", i, err)
		}
		r, err := e.Embed(ctx, text)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("embed text %d: %w", i, err)
		}
		out.Embeddings[i] = r.Embedding
		out.PromptTokens += r.PromptTokens
		out.TotalTokens += r.TotalTokens
	}
	return out, nil
}

func checkShape(res BatchEmbeddingResult, want int) error {
	if len(res.Embeddings) != want {
		return fmt.Errorf("%w: got %d vectors for %d texts",
			ErrEmbeddingProviderError, len(res.Embeddings), want)
	}
	dims := res.Dimensions()
	for i, v := range res.Embeddings {
		if len(v) == 0 || len(v) != dims {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				ErrEmbeddingProviderError, i, len(v), dims)
		}
	}
	return nil
}

// InstructionEmbedder prefixes every text with a fixed instruction. Asymmetric
// models take one instruction for stored chunks and another for queries.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder wraps inner.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	r, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return r, nil
}

func (e *InstructionEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	in := texts
	if e.instruction != "" {
		in = make([]string, len(texts))
		for i, t := range texts {
			in[i] = e.instruction + t
		}
	}

	r, err := EmbedAll(ctx, e.inner, in)
	if err != nil {
		return BatchEmbeddingResult{}, fmt.Errorf("instruction batch embed: %w", err)
	}
	return r, nil
}

// HealthCheck forwards to the inner embedder when it can be checked.
func (e *InstructionEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}
