// Package ingest runs the document processor and pushes the chunks to the vector store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/finrag/internal/domain"
	"github.com/kailas-cloud/finrag/internal/domain/batch"
	"github.com/kailas-cloud/finrag/internal/domain/chunk"
	logpkg "github.com/kailas-cloud/finrag/internal/logger"
)

// DocumentInfo summarizes one ingested file.
type DocumentInfo struct {
	Filename      string
	Size          int64
	ChunksCreated int
	Metadata      chunk.Metadata
}

// Report is the outcome of one ingestion run.
type Report struct {
	Documents  []DocumentInfo
	Errors     []string
	ChunkCount int
}

// Upload is one file received from a client.
type Upload struct {
	Filename string
	Body     io.Reader
}

// Service ingests directories and uploaded files.
type Service struct {
	proc       Processor
	sink       Sink
	stagingDir string
	logger     *zap.Logger
}

// New creates an ingestion service. Uploads are staged under os.TempDir().
func New(proc Processor, sink Sink, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{proc: proc, sink: sink, stagingDir: os.TempDir(), logger: logger}
}

// WithStagingDir sets the parent directory for upload staging.
func (s *Service) WithStagingDir(dir string) *Service {
	if dir != "" {
		s.stagingDir = dir
	}
	return s
}

// IngestDirectory processes every supported file in dir and stores the chunks.
// It fails with domain.ErrNoContent when no file produced a chunk; the report
// still lists the per-file errors.
func (s *Service) IngestDirectory(ctx context.Context, dir string) (Report, error) {
	results, err := s.proc.ProcessDirectory(ctx, dir)
	if err != nil {
		return Report{}, fmt.Errorf("process directory: %w", err)
	}
	return s.store(ctx, results, "directory "+dir)
}

// IngestUploads stages files on disk, processes them and stores the chunks.
func (s *Service) IngestUploads(ctx context.Context, uploads []Upload) (Report, error) {
	if len(uploads) == 0 {
		return Report{}, fmt.Errorf("no files uploaded: %w", domain.ErrInvalidRequest)
	}

	dir := filepath.Join(s.stagingDir, "finrag-upload-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Report{}, fmt.Errorf("create staging dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logpkg.FromContext(ctx, s.logger).Warn("Failed to remove staging dir",
				zap.String("dir", dir), zap.Error(err))
		}
	}()

	var (
		paths  []string
		report Report
	)
	for i, u := range uploads {
		p, err := stage(dir, i, u)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", u.Filename, err))
			continue
		}
		paths = append(paths, p)
	}

	results, err := s.proc.ProcessFiles(ctx, paths)
	if err != nil {
		return Report{}, fmt.Errorf("process uploads: %w", err)
	}

	r, err := s.store(ctx, results, "uploaded files")
	r.Errors = append(report.Errors, r.Errors...)
	return r, err
}

func (s *Service) store(ctx context.Context, results []batch.Result, what string) (Report, error) {
	report := summarize(results)
	if report.ChunkCount == 0 {
		return report, fmt.Errorf("no content could be extracted from %s: %w", what, domain.ErrNoContent)
	}

	if err := s.sink.AddChunks(ctx, batch.Collect(results)); err != nil {
		return report, fmt.Errorf("add chunks: %w", err)
	}

	logpkg.FromContext(ctx, s.logger).Info("Documents ingested",
		zap.String("source", what),
		zap.Int("documents", len(report.Documents)),
		zap.Int("chunks", report.ChunkCount),
		zap.Int("errors", len(report.Errors)),
	)
	return report, nil
}

func summarize(results []batch.Result) Report {
	var r Report
	for _, res := range results {
		if res.Status() != batch.StatusOK {
			r.Errors = append(r.Errors, describe(res))
			continue
		}
		chunks := res.Chunks()
		r.Documents = append(r.Documents, DocumentInfo{
			Filename:      res.Filename(),
			Size:          res.Bytes(),
			ChunksCreated: len(chunks),
			Metadata:      chunks[0].Metadata(),
		})
		r.ChunkCount += len(chunks)
	}
	return r
}

// describe renders a per-file error without the staging path.
func describe(r batch.Result) string {
	err := r.Err()
	var fe *domain.FileError
	if errors.As(err, &fe) {
		err = fe.Err
	}
	return fmt.Sprintf("%s: %v", r.Filename(), err)
}

func stage(dir string, i int, u Upload) (string, error) {
	name := filepath.Base(strings.ReplaceAll(u.Filename, "\\", "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		return "", fmt.Errorf("invalid filename: %w", domain.ErrInvalidRequest)
	}

	sub := filepath.Join(dir, strconv.Itoa(i))
	if err := os.Mkdir(sub, 0o700); err != nil {
		return "", fmt.Errorf("stage upload: %w", err)
	}

	p := filepath.Join(sub, name)
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600) //nolint:gosec // name is a base name
	if err != nil {
		return "", fmt.Errorf("stage upload: %w", err)
	}
	defer f.Close() //nolint:errcheck // close error surfaces on the explicit Close below

	if _, err := io.Copy(f, u.Body); err != nil {
		return "", fmt.Errorf("stage upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("stage upload: %w", err)
	}
	return p, nil
}
