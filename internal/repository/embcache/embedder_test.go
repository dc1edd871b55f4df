package embcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

func TestEmbed_MissThenHit(t *testing.T) {
	ce, inner, kv := newFixture(t)
	ctx := context.Background()

	first, err := ce.Embed(ctx, "revenue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.TotalTokens != 7 || first.Embedding[0] != 7 {
		t.Fatalf("first = %+v", first)
	}
	if kv.ttls[ce.key("revenue")] != DefaultTTL {
		t.Errorf("ttl = %v, want %v", kv.ttls[ce.key("revenue")], DefaultTTL)
	}

	second, err := ce.Embed(ctx, "revenue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.TotalTokens != 0 || second.Embedding[0] != 7 {
		t.Errorf("second = %+v, want cached vector with zero tokens", second)
	}
	if len(inner.calls) != 1 {
		t.Errorf("provider calls = %d, want 1", len(inner.calls))
	}
}

func TestEmbed_StoreFailuresDegradeToMiss(t *testing.T) {
	ce, inner, kv := newFixture(t)
	kv.readErr = errors.New("READONLY")
	kv.putErr = errors.New("READONLY")

	res, err := ce.Embed(context.Background(), "tax")
	if err != nil {
		t.Fatalf("cache errors must not fail the call: %v", err)
	}
	if res.Embedding[0] != 3 || len(inner.calls) != 1 {
		t.Errorf("res = %+v calls = %d", res, len(inner.calls))
	}
}

func TestEmbed_RejectsBadEntries(t *testing.T) {
	tests := []struct {
		name  string
		entry []byte
		dims  int
	}{
		{"truncated bytes", []byte{1, 2, 3}, 0},
		{"wrong dimensions", encode([]float32{1, 2, 3}), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce, inner, kv := newFixture(t)
			ce.WithDimensions(tt.dims)
			kv.data[ce.key("x")] = tt.entry

			res, err := ce.Embed(context.Background(), "x")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(inner.calls) != 1 || res.Embedding[0] != 1 {
				t.Errorf("expected provider vector, got %v (calls %d)", res.Embedding, len(inner.calls))
			}
		})
	}
}

func TestEmbed_InnerError(t *testing.T) {
	ce, inner, kv := newFixture(t)
	inner.err = errors.New("provider down")

	if _, err := ce.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
	if len(kv.data) != 0 {
		t.Error("failed embedding must not be cached")
	}
}

func TestKey_Namespace(t *testing.T) {
	ce, _, _ := newFixture(t)
	plain := ce.key("hello")
	scoped := ce.WithNamespace("text-embedding-3-small").key("hello")

	if !strings.HasPrefix(plain, "finrag:emb_cache:") {
		t.Errorf("unexpected key %q", plain)
	}
	if !strings.HasPrefix(scoped, "finrag:emb_cache:text-embedding-3-small:") {
		t.Errorf("unexpected scoped key %q", scoped)
	}
	if plain == ce.key("hello!") {
		t.Error("different texts must not share a key")
	}
}

func TestBatchEmbed_MixedHitsAndDuplicates(t *testing.T) {
	ce, inner, kv := newFixture(t)
	ce.WithTTL(time.Hour)
	kv.seed(ce, "cached", []float32{42, 1})

	texts := []string{"alpha", "cached", "beta", "alpha"}
	res, err := ce.BatchEmbed(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []float32{5, 42, 4, 5}
	for i, v := range res.Embeddings {
		if v[0] != want[i] {
			t.Errorf("embedding %d = %v, want first component %v", i, v, want[i])
		}
	}
	if len(inner.calls) != 1 || len(inner.calls[0]) != 2 {
		t.Fatalf("provider should see one call with the distinct misses, got %v", inner.calls)
	}
	if res.TotalTokens != 9 {
		t.Errorf("tokens = %d, want 9", res.TotalTokens)
	}
	if kv.keysWithPrefix(keyPrefix) != 3 || kv.ttls[ce.key("beta")] != time.Hour {
		t.Errorf("unexpected cache contents: %d keys", len(kv.data))
	}
}

func TestBatchEmbed_AllHitsSkipsProvider(t *testing.T) {
	ce, inner, kv := newFixture(t)
	kv.seed(ce, "a", []float32{1, 1})
	kv.seed(ce, "b", []float32{2, 1})

	res, err := ce.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.calls) != 0 || res.TotalTokens != 0 || len(res.Embeddings) != 2 {
		t.Errorf("res = %+v calls = %d", res, len(inner.calls))
	}
}

func TestBatchEmbed_ReadFailureEmbedsEverything(t *testing.T) {
	ce, inner, kv := newFixture(t)
	kv.seed(ce, "a", []float32{9, 9})
	kv.readErr = errors.New("timeout")

	res, err := ce.BatchEmbed(context.Background(), []string{"a", "bb"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.calls) != 1 || len(inner.calls[0]) != 2 || res.Embeddings[0][0] != 1 {
		t.Errorf("res = %+v calls = %v", res, inner.calls)
	}
}

func TestBatchEmbed_InnerError(t *testing.T) {
	ce, inner, _ := newFixture(t)
	inner.err = errors.New("rate limited")

	_, err := ce.BatchEmbed(context.Background(), []string{"a"})
	if !errors.Is(err, inner.err) {
		t.Errorf("expected wrapped provider error, got %v", err)
	}
}

func TestBatchEmbed_Empty(t *testing.T) {
	ce, inner, _ := newFixture(t)

	res, err := ce.BatchEmbed(context.Background(), nil)
	if err != nil || res.Embeddings != nil || len(inner.calls) != 0 {
		t.Errorf("res = %+v err = %v calls = %d", res, err, len(inner.calls))
	}
}

func TestCacheMetrics(t *testing.T) {
	inner := &lengthEmbedder{}
	kv := newMemKV()
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	ce := New(inner, kv, counter, zap.NewNop())
	kv.seed(ce, "hit", []float32{1, 1})

	if _, err := ce.BatchEmbed(context.Background(), []string{"hit", "miss1", "miss2", "miss1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 1 {
		t.Errorf("hits = %v, want 1", got)
	}
	// a repeated text is counted as one miss and served from the same provider vector
	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 2 {
		t.Errorf("misses = %v, want 2", got)
	}
}

func TestHealthCheck_Forwards(t *testing.T) {
	ce, inner, _ := newFixture(t)
	inner.health = errors.New("unreachable")

	if err := ce.HealthCheck(context.Background()); !errors.Is(err, inner.health) {
		t.Errorf("expected forwarded error, got %v", err)
	}
}
