package ingest

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/kailas-cloud/finrag/internal/domain"
	"github.com/kailas-cloud/finrag/internal/domain/batch"
	"github.com/kailas-cloud/finrag/internal/domain/chunk"
	"github.com/kailas-cloud/finrag/internal/loader"
	"github.com/kailas-cloud/finrag/internal/usecase/processor"
)

// --- Mocks ---

type mockProcessor struct {
	dirResults  []batch.Result
	dirErr      error
	fileResults func(paths []string) []batch.Result
	gotPaths    []string
}

func (m *mockProcessor) ProcessDirectory(_ context.Context, _ string) ([]batch.Result, error) {
	return m.dirResults, m.dirErr
}

func (m *mockProcessor) ProcessFiles(_ context.Context, paths []string) ([]batch.Result, error) {
	m.gotPaths = paths
	if m.fileResults == nil {
		return nil, nil
	}
	return m.fileResults(paths), nil
}

type mockSink struct {
	added []chunk.DocumentChunk
	err   error
}

func (m *mockSink) AddChunks(_ context.Context, chunks []chunk.DocumentChunk) error {
	if m.err != nil {
		return m.err
	}
	m.added = append(m.added, chunks...)
	return nil
}

func mkChunk(t *testing.T, filename string, n int) chunk.DocumentChunk {
	t.Helper()
	c, err := chunk.New(filename+"-"+string(rune('a'+n)), "content", chunk.Metadata{
		chunk.KeyFilename:    filename,
		chunk.KeyChunkNumber: n,
	})
	if err != nil {
		t.Fatalf("chunk.New: %v", err)
	}
	return c
}

// --- Tests ---

func TestIngestDirectory_Success(t *testing.T) {
	proc := &mockProcessor{dirResults: []batch.Result{
		batch.NewOK("/d/a.txt", 120, []chunk.DocumentChunk{mkChunk(t, "a.txt", 0), mkChunk(t, "a.txt", 1)}),
		batch.NewError("/d/b.txt", 0, domain.NewFileError("/d/b.txt", domain.ErrEmptyDocument)),
	}}
	sink := &mockSink{}

	report, err := New(proc, sink, nil).IngestDirectory(context.Background(), "/d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.ChunkCount != 2 || len(sink.added) != 2 {
		t.Errorf("chunks: report=%d sink=%d", report.ChunkCount, len(sink.added))
	}
	if len(report.Documents) != 1 {
		t.Fatalf("expected 1 document, got %d", len(report.Documents))
	}
	doc := report.Documents[0]
	if doc.Filename != "a.txt" || doc.Size != 120 || doc.ChunksCreated != 2 {
		t.Errorf("document info = %+v", doc)
	}
	if n, _ := doc.Metadata.Int(chunk.KeyChunkNumber); n != 0 {
		t.Errorf("metadata should come from the first chunk, got chunk_number %d", n)
	}
	if len(report.Errors) != 1 || report.Errors[0] != "b.txt: empty document" {
		t.Errorf("errors = %v", report.Errors)
	}
}

func TestIngestDirectory_NoContent(t *testing.T) {
	proc := &mockProcessor{dirResults: []batch.Result{
		batch.NewError("/d/b.txt", 0, domain.ErrEmptyDocument),
	}}
	sink := &mockSink{}

	report, err := New(proc, sink, nil).IngestDirectory(context.Background(), "/d")
	if !errors.Is(err, domain.ErrNoContent) {
		t.Fatalf("err = %v, want ErrNoContent", err)
	}
	if len(report.Errors) != 1 {
		t.Errorf("errors should still be reported, got %v", report.Errors)
	}
	if sink.added != nil {
		t.Error("sink must not be called without chunks")
	}
}

func TestIngestDirectory_ProcessorError(t *testing.T) {
	proc := &mockProcessor{dirErr: domain.ErrNotFound}

	_, err := New(proc, &mockSink{}, nil).IngestDirectory(context.Background(), "/missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestIngestDirectory_SinkErrorSurfaced(t *testing.T) {
	sinkErr := errors.New("store down")
	proc := &mockProcessor{dirResults: []batch.Result{
		batch.NewOK("/d/a.txt", 1, []chunk.DocumentChunk{mkChunk(t, "a.txt", 0)}),
	}}

	_, err := New(proc, &mockSink{err: sinkErr}, nil).IngestDirectory(context.Background(), "/d")
	if !errors.Is(err, sinkErr) {
		t.Errorf("err = %v, want sink error", err)
	}
}

func TestIngestUploads_StagesAndCleansUp(t *testing.T) {
	staging := t.TempDir()
	var staged []string
	proc := &mockProcessor{fileResults: func(paths []string) []batch.Result {
		staged = append(staged, paths...)
		out := make([]batch.Result, len(paths))
		for i, p := range paths {
			data, err := os.ReadFile(p)
			if err != nil {
				t.Fatalf("staged file unreadable: %v", err)
			}
			out[i] = batch.NewOK(p, int64(len(data)), []chunk.DocumentChunk{mkChunk(t, "x.txt", i)})
		}
		return out
	}}

	svc := New(proc, &mockSink{}, nil).WithStagingDir(staging)
	report, err := svc.IngestUploads(context.Background(), []Upload{
		{Filename: "a.txt", Body: strings.NewReader("hello")},
		{Filename: "../../etc/a.txt", Body: strings.NewReader("world!")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(staged) != 2 {
		t.Fatalf("expected 2 staged files, got %v", staged)
	}
	for _, p := range staged {
		if !strings.HasPrefix(p, staging) {
			t.Errorf("file staged outside staging dir: %s", p)
		}
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("staged file %s not cleaned up", p)
		}
	}
	if report.Documents[1].Size != 6 {
		t.Errorf("size = %d", report.Documents[1].Size)
	}
}

func TestIngestUploads_InvalidName(t *testing.T) {
	proc := &mockProcessor{}

	report, err := New(proc, &mockSink{}, nil).WithStagingDir(t.TempDir()).
		IngestUploads(context.Background(), []Upload{{Filename: "..", Body: strings.NewReader("x")}})

	if !errors.Is(err, domain.ErrNoContent) {
		t.Errorf("err = %v, want ErrNoContent", err)
	}
	if len(report.Errors) != 1 || !strings.HasPrefix(report.Errors[0], "..: invalid filename") {
		t.Errorf("errors = %v", report.Errors)
	}
}

func TestIngestUploads_Empty(t *testing.T) {
	_, err := New(&mockProcessor{}, &mockSink{}, nil).IngestUploads(context.Background(), nil)
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestIngestUploads_WithRealProcessor(t *testing.T) {
	proc, err := processor.New(loader.New(), processor.DefaultConfig())
	if err != nil {
		t.Fatalf("processor.New: %v", err)
	}
	sink := &mockSink{}

	report, err := New(proc, sink, nil).WithStagingDir(t.TempDir()).IngestUploads(context.Background(), []Upload{
		{Filename: "hb101.txt", Body: strings.NewReader("House Bill 101. Fiscal year 2025 allocates $1,000.")},
		{Filename: "notes.csv", Body: strings.NewReader("a,b")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Documents) != 1 || report.Documents[0].Filename != "hb101.txt" {
		t.Fatalf("documents = %+v", report.Documents)
	}
	if report.Documents[0].Metadata.String(chunk.FieldDocumentCategory) != "budget_bill" {
		t.Errorf("metadata = %v", report.Documents[0].Metadata)
	}
	if len(report.Errors) != 1 || report.Errors[0] != "notes.csv: unsupported file type" {
		t.Errorf("errors = %v", report.Errors)
	}
	if len(sink.added) != 1 {
		t.Errorf("sink got %d chunks", len(sink.added))
	}
}
