package chi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kailas-cloud/finrag/internal/domain"
	"github.com/kailas-cloud/finrag/internal/domain/chunk"
	"github.com/kailas-cloud/finrag/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/finrag/internal/usecase/health"
	"github.com/kailas-cloud/finrag/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/finrag/internal/usecase/search"
)

type mockCollections struct {
	statsFn func(ctx context.Context) (domain.CollectionStats, error)
	resetFn func(ctx context.Context) error
	getFn   func(ctx context.Context, id string) (chunk.DocumentChunk, error)
}

func (m *mockCollections) Stats(ctx context.Context) (domain.CollectionStats, error) {
	return m.statsFn(ctx)
}

func (m *mockCollections) Reset(ctx context.Context) error { return m.resetFn(ctx) }

func (m *mockCollections) Get(ctx context.Context, id string) (chunk.DocumentChunk, error) {
	return m.getFn(ctx, id)
}

type mockSearcher struct {
	searchFn func(ctx context.Context, req searchuc.Request) ([]result.Result, error)
}

func (m *mockSearcher) Search(ctx context.Context, req searchuc.Request) ([]result.Result, error) {
	return m.searchFn(ctx, req)
}

type mockIngester struct {
	dirFn    func(ctx context.Context, dir string) (ingest.Report, error)
	uploadFn func(ctx context.Context, uploads []ingest.Upload) (ingest.Report, error)
}

func (m *mockIngester) IngestDirectory(ctx context.Context, dir string) (ingest.Report, error) {
	return m.dirFn(ctx, dir)
}

func (m *mockIngester) IngestUploads(ctx context.Context, uploads []ingest.Upload) (ingest.Report, error) {
	return m.uploadFn(ctx, uploads)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type fixture struct {
	collections *mockCollections
	search      *mockSearcher
	ingest      *mockIngester
	health      *mockHealth
	server      *Server
	handler     http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		collections: &mockCollections{},
		search:      &mockSearcher{},
		ingest:      &mockIngester{},
		health: &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.Check{
				healthuc.ComponentVectorStore: {Result: healthuc.CheckOK, Latency: 2 * time.Millisecond},
				healthuc.ComponentEmbedding:   {Result: healthuc.CheckOK},
			},
		}},
	}
	vec := domain.DefaultVectorConfig()
	f.server = NewServer(f.collections, f.search, f.ingest, f.health, vec, nil)
	f.handler = Handler(f.server)
	return f
}

func (f *fixture) do(t *testing.T, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func mustChunk(t *testing.T, id, content string, md chunk.Metadata) chunk.DocumentChunk {
	t.Helper()
	c, err := chunk.New(id, content, md)
	if err != nil {
		t.Fatalf("chunk.New: %v", err)
	}
	return c
}
