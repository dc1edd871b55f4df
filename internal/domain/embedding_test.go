package domain

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// recorder embeds each text as [len(text)] and remembers what it saw.
type recorder struct {
	seen []string
	err  error
}

func (r *recorder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	r.seen = append(r.seen, text)
	if r.err != nil {
		return EmbeddingResult{}, r.err
	}
	return EmbeddingResult{Embedding: []float32{float32(len(text))}, PromptTokens: 2, TotalTokens: 3}, nil
}

// batchRecorder answers BatchEmbed with a canned result.
type batchRecorder struct {
	recorder
	batch    BatchEmbeddingResult
	batchErr error
	batches  [][]string
}

func (b *batchRecorder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	b.batches = append(b.batches, texts)
	return b.batch, b.batchErr
}

func TestEmbedAll_UsesBatchWhenAvailable(t *testing.T) {
	inner := &batchRecorder{batch: BatchEmbeddingResult{
		Embeddings:  [][]float32{{1, 2}, {3, 4}},
		TotalTokens: 9,
	}}

	res, err := EmbedAll(context.Background(), inner, []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.batches) != 1 || len(inner.seen) != 0 {
		t.Errorf("batches=%d single=%d", len(inner.batches), len(inner.seen))
	}
	if res.Dimensions() != 2 || res.TotalTokens != 9 {
		t.Errorf("res = %+v", res)
	}
}

func TestEmbedAll_FallsBackToSingleCalls(t *testing.T) {
	inner := &recorder{}

	res, err := EmbedAll(context.Background(), inner, []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.seen) != 3 {
		t.Fatalf("single calls = %d, want 3", len(inner.seen))
	}
	if res.PromptTokens != 6 || res.TotalTokens != 9 {
		t.Errorf("tokens = %d/%d, want 6/9", res.PromptTokens, res.TotalTokens)
	}
}

func TestEmbedAll_RejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		vecs [][]float32
	}{
		{"too few vectors", [][]float32{{1}}},
		{"ragged vectors", [][]float32{{1, 2}, {3}}},
		{"empty vector", [][]float32{{}, {}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &batchRecorder{batch: BatchEmbeddingResult{Embeddings: tt.vecs}}

			_, err := EmbedAll(context.Background(), inner, []string{"a", "b"})
			if !errors.Is(err, ErrEmbeddingProviderError) {
				t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
			}
		})
	}
}

func TestEmbedAll_EmptyInputSkipsProvider(t *testing.T) {
	inner := &batchRecorder{}

	res, err := EmbedAll(context.Background(), inner, nil)
	if err != nil || res.Embeddings != nil || inner.batches != nil {
		t.Errorf("res=%+v err=%v batches=%v", res, err, inner.batches)
	}
	if res.Dimensions() != 0 {
		t.Errorf("dimensions = %d", res.Dimensions())
	}
}

func TestEmbedAll_FallbackStopsOnError(t *testing.T) {
	boom := errors.New("provider down")
	inner := &recorder{err: boom}

	_, err := EmbedAll(context.Background(), inner, []string{"a", "b"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
	if len(inner.seen) != 1 {
		t.Errorf("calls after failure = %d, want 1", len(inner.seen))
	}
}

func TestEmbedAll_FallbackHonoursCancellation(t *testing.T) {
	inner := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := EmbedAll(ctx, inner, []string{"a"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(inner.seen) != 0 {
		t.Error("provider called after cancellation")
	}
}

func TestInstructionEmbedder(t *testing.T) {
	tests := []struct {
		name        string
		instruction string
		want        string
	}{
		{"prefixed", "search_document: ", "search_document: revenue"},
		{"no instruction", "", "revenue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &batchRecorder{batch: BatchEmbeddingResult{Embeddings: [][]float32{{1}}}}
			emb := NewInstructionEmbedder(inner, tt.instruction)

			if _, err := emb.Embed(context.Background(), "revenue"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, err := emb.BatchEmbed(context.Background(), []string{"revenue"}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if inner.seen[0] != tt.want || inner.batches[0][0] != tt.want {
				t.Errorf("single=%q batch=%q, want %q", inner.seen[0], inner.batches[0][0], tt.want)
			}
		})
	}
}

func TestInstructionEmbedder_WrapsErrors(t *testing.T) {
	boom := errors.New("rate limited")
	inner := &batchRecorder{recorder: recorder{err: boom}, batchErr: boom}
	emb := NewInstructionEmbedder(inner, "q: ")

	if _, err := emb.Embed(context.Background(), "x"); !errors.Is(err, boom) {
		t.Errorf("Embed error = %v", err)
	}
	if _, err := emb.BatchEmbed(context.Background(), []string{"x"}); !errors.Is(err, boom) {
		t.Errorf("BatchEmbed error = %v", err)
	}
}

func TestEmbeddingUsage_NilSafe(t *testing.T) {
	var u *EmbeddingUsage
	u.AddTokens(5)
	if u.Used() || u.Tokens() != 0 || u.Calls() != 0 {
		t.Error("nil usage should report nothing")
	}
	if UsageFromContext(context.Background()) != nil {
		t.Error("expected nil usage without NewContextWithUsage")
	}
}

func TestEmbeddingUsage_CountsCallsAndTokens(t *testing.T) {
	ctx, got := NewContextWithUsage(context.Background())
	UsageFromContext(ctx).AddTokens(7)
	UsageFromContext(ctx).AddTokens(0) // cache hit

	if got.Tokens() != 7 || got.Calls() != 2 || !got.Used() {
		t.Errorf("tokens=%d calls=%d used=%v", got.Tokens(), got.Calls(), got.Used())
	}
}

func TestEmbeddingUsage_Concurrent(t *testing.T) {
	_, u := NewContextWithUsage(context.Background())

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u.AddTokens(2)
		}()
	}
	wg.Wait()

	if u.Tokens() != 100 || u.Calls() != 50 {
		t.Errorf("tokens=%d calls=%d, want 100/50", u.Tokens(), u.Calls())
	}
}
