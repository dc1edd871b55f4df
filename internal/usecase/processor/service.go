// Package processor turns source files into ordered document chunks.
package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/finrag/internal/chunking"
	"github.com/kailas-cloud/finrag/internal/domain"
	"github.com/kailas-cloud/finrag/internal/domain/batch"
	"github.com/kailas-cloud/finrag/internal/domain/chunk"
	"github.com/kailas-cloud/finrag/internal/domain/doctype"
	"github.com/kailas-cloud/finrag/internal/extract"
	"github.com/kailas-cloud/finrag/internal/metrics"
)

// Service loads, extracts and chunks documents with one fixed configuration.
type Service struct {
	src       Source
	cfg       Config
	exts      map[string]struct{}
	chunker   *chunking.Chunker
	extractor *extract.Extractor
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	logger *zap.Logger
	now    func() time.Time
}

// WithLogger sets the logger used for skipped-file warnings.
func WithLogger(l *zap.Logger) Option {
	return func(o *serviceOptions) { o.logger = l }
}

// WithClock overrides the processed_at source.
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) { o.now = now }
}

// New creates a document processor.
func New(src Source, cfg Config, opts ...Option) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("processor config: %w", err)
	}

	o := serviceOptions{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	chunker, err := chunking.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("processor config: %w", err)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.DocType == "" {
		cfg.DocType = doctype.General
	}

	return &Service{
		src:       src,
		cfg:       cfg,
		exts:      cfg.extensionSet(),
		chunker:   chunker,
		extractor: extract.New(cfg.DocType, extract.WithClock(o.now)),
		logger:    o.logger,
	}, nil
}

// Config returns the processor configuration.
func (s *Service) Config() Config { return s.cfg }

// Supports reports whether path has one of the configured extensions.
func (s *Service) Supports(path string) bool {
	_, ok := s.exts[s.src.Extension(path)]
	return ok
}

// Process chunks one file and reports why nothing was produced.
func (s *Service) Process(ctx context.Context, path string) ([]chunk.DocumentChunk, error) {
	chunks, err := s.process(ctx, path)
	if err != nil {
		metrics.DocumentsProcessedTotal.WithLabelValues(s.cfg.DocType.String(), "error").Inc()
		return nil, err
	}
	return chunks, nil
}

func (s *Service) process(ctx context.Context, path string) ([]chunk.DocumentChunk, error) {
	if !s.Supports(path) {
		return nil, domain.NewFileError(path, domain.ErrUnsupportedFileType)
	}
	if !s.src.Exists(path) {
		return nil, domain.NewFileError(path, domain.ErrFileNotFound)
	}

	start := time.Now()
	text, err := s.src.Read(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewFileError(path, domain.ErrEmptyDocument)
	}

	base := s.extractor.Extract(path, text).Fields()
	chunks, err := s.chunker.Chunk(text, base)
	if err != nil {
		return nil, domain.NewFileError(path, err)
	}
	if len(chunks) == 0 {
		return nil, domain.NewFileError(path, domain.ErrEmptyDocument)
	}

	s.observe(chunks, time.Since(start))
	return chunks, nil
}

// ProcessDocument is the log-and-skip form of Process: failures are logged as
// warnings and yield an empty, non-nil list.
func (s *Service) ProcessDocument(ctx context.Context, path string) []chunk.DocumentChunk {
	chunks, err := s.Process(ctx, path)
	if err != nil {
		s.skip(path, err)
		return []chunk.DocumentChunk{}
	}
	return chunks
}

// ProcessFiles chunks every path independently on a bounded worker pool.
// Results keep the input order. Only cancellation fails the whole call.
func (s *Service) ProcessFiles(ctx context.Context, paths []string) ([]batch.Result, error) {
	results := make([]batch.Result, len(paths))

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)

	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = s.processOne(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("process files: %w", err)
	}

	detectCollisions(results)
	return results, nil
}

// ProcessDirectory chunks every supported file directly inside dir, in name order.
func (s *Service) ProcessDirectory(ctx context.Context, dir string) ([]batch.Result, error) {
	paths, err := s.listDirectory(dir)
	if err != nil {
		return nil, err
	}
	return s.ProcessFiles(ctx, paths)
}

// Chunks returns the chunks of all supported files in dir, concatenated in file-then-chunk order.
func (s *Service) Chunks(ctx context.Context, dir string) ([]chunk.DocumentChunk, error) {
	results, err := s.ProcessDirectory(ctx, dir)
	if err != nil {
		return nil, err
	}
	for _, r := range batch.Errors(results) {
		s.skip(r.Path(), r.Err())
	}
	return batch.Collect(results), nil
}

func (s *Service) processOne(ctx context.Context, path string) batch.Result {
	// A missing file still gets a result; its size is reported as zero.
	var size int64
	if n, err := s.src.Size(path); err == nil {
		size = n
	}

	chunks, err := s.Process(ctx, path)
	if err != nil {
		return batch.NewError(path, size, err)
	}
	return batch.NewOK(path, size, chunks)
}

func (s *Service) listDirectory(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("directory %s: %w", dir, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory: %w", dir, domain.ErrInvalidRequest)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if s.Supports(p) {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

func (s *Service) skip(path string, err error) {
	s.logger.Warn("Skipping document",
		zap.String("path", path),
		zap.String("doc_type", s.cfg.DocType.String()),
		zap.Error(err),
	)
}

func (s *Service) observe(chunks []chunk.DocumentChunk, took time.Duration) {
	dt := s.cfg.DocType.String()
	metrics.DocumentsProcessedTotal.WithLabelValues(dt, "ok").Inc()
	metrics.DocumentProcessDuration.WithLabelValues(dt).Observe(took.Seconds())
	metrics.ChunksCreatedTotal.WithLabelValues(dt).Add(float64(len(chunks)))
	for i := range chunks {
		metrics.ChunkSizeChars.WithLabelValues(dt).Observe(float64(chunking.Len(chunks[i].Content())))
	}
}

// detectCollisions fails any file whose chunk ids clash with a different
// (filename, number) pair earlier in the batch or earlier in the same file.
// A failed file claims none of its ids.
func detectCollisions(results []batch.Result) {
	owners := map[string]string{}
	for i, r := range results {
		if r.Status() != batch.StatusOK {
			continue
		}

		claimed := make(map[string]string, len(r.Chunks()))
		var clash error
		for _, c := range r.Chunks() {
			key := c.Filename() + "_" + strconv.Itoa(c.Number())
			prev, ok := owners[c.ID()]
			if !ok {
				prev, ok = claimed[c.ID()]
			}
			if ok && prev != key {
				clash = fmt.Errorf("id %s shared by %s and %s: %w", c.ID(), prev, key, domain.ErrChunkIDCollision)
				break
			}
			claimed[c.ID()] = key
		}
		if clash != nil {
			results[i] = batch.NewError(r.Path(), r.Bytes(), domain.NewFileError(r.Path(), clash))
			continue
		}
		for id, key := range claimed {
			owners[id] = key
		}
	}
}
