package embcache

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/finrag/internal/db"
	"github.com/kailas-cloud/finrag/internal/domain"
)

// lengthEmbedder returns [len(text), 1] and charges len(text) tokens.
type lengthEmbedder struct {
	calls  [][]string
	err    error
	health error
}

func (e *lengthEmbedder) vector(text string) []float32 {
	return []float32{float32(len(text)), 1}
}

func (e *lengthEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.calls = append(e.calls, []string{text})
	if e.err != nil {
		return domain.EmbeddingResult{}, e.err
	}
	return domain.EmbeddingResult{Embedding: e.vector(text), PromptTokens: len(text), TotalTokens: len(text)}, nil
}

func (e *lengthEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	e.calls = append(e.calls, texts)
	if e.err != nil {
		return domain.BatchEmbeddingResult{}, e.err
	}
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, t := range texts {
		out.Embeddings[i] = e.vector(t)
		out.PromptTokens += len(t)
		out.TotalTokens += len(t)
	}
	return out, nil
}

func (e *lengthEmbedder) HealthCheck(context.Context) error { return e.health }

// memKV is an in-memory store with injectable failures.
type memKV struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	readErr error
	putErr  error
}

func newMemKV() *memKV {
	return &memKV{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKV) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memKV) GetMulti(_ context.Context, keys []string) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = m.data[k]
	}
	return out, nil
}

func (m *memKV) SetMultiWithTTL(_ context.Context, entries []db.Entry, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	for _, e := range entries {
		m.data[e.Key] = e.Value
		m.ttls[e.Key] = ttl
	}
	return nil
}

// seed stores vec under the key CachedEmbedder would use for text.
func (m *memKV) seed(c *CachedEmbedder, text string, vec []float32) {
	m.data[c.key(text)] = encode(vec)
}

func (m *memKV) keysWithPrefix(prefix string) int {
	n := 0
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			n++
		}
	}
	return n
}

func newFixture(t *testing.T) (*CachedEmbedder, *lengthEmbedder, *memKV) {
	t.Helper()
	inner := &lengthEmbedder{}
	kv := newMemKV()
	return New(inner, kv, nil, zap.NewNop()), inner, kv
}
