// Package loader reads source documents from disk and decodes them to plain text.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/finrag/internal/domain"
)

// Format converts raw file bytes into plain text.
type Format func(data []byte) (string, error)

// FileSource reads documents, picking a Format by file extension.
// Extensions without a registered Format are decoded as plain text.
type FileSource struct {
	formats  map[string]Format
	maxBytes int64
}

// Option configures a FileSource.
type Option func(*FileSource)

// WithFormat registers f for ext (".csv", ".html", ...).
func WithFormat(ext string, f Format) Option {
	return func(s *FileSource) { s.formats[normalizeExt(ext)] = f }
}

// WithMaxBytes rejects files larger than n bytes. Zero disables the limit.
func WithMaxBytes(n int64) Option {
	return func(s *FileSource) { s.maxBytes = n }
}

// New creates a FileSource with text, markdown and PDF support.
func New(opts ...Option) *FileSource {
	s := &FileSource{
		formats: map[string]Format{
			".txt":      PlainText,
			".text":     PlainText,
			".md":       Markdown,
			".markdown": Markdown,
			".pdf":      PDF,
		},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Exists reports whether path names a regular file.
func (s *FileSource) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Size returns the byte size of the file at path.
func (s *FileSource) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Size(), nil
}

// Extension returns the lower-cased extension of path, dot included.
func (s *FileSource) Extension(path string) string {
	return normalizeExt(filepath.Ext(path))
}

// Read loads path and decodes it. Invalid byte sequences are dropped.
func (s *FileSource) Read(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", domain.NewFileError(path, domain.ErrFileNotFound)
		}
		return "", domain.NewFileError(path, err)
	}
	if info.IsDir() {
		return "", domain.NewFileError(path, fmt.Errorf("is a directory: %w", domain.ErrUnsupportedFileType))
	}
	if s.maxBytes > 0 && info.Size() > s.maxBytes {
		return "", domain.NewFileError(path,
			fmt.Errorf("file exceeds %d bytes: %w", s.maxBytes, domain.ErrInvalidRequest))
	}

	data, err := os.ReadFile(path) //nolint:gosec // paths come from operator-supplied directories
	if err != nil {
		return "", domain.NewFileError(path, err)
	}

	format, ok := s.formats[s.Extension(path)]
	if !ok {
		format = PlainText
	}

	text, err := format(data)
	if err != nil {
		return "", domain.NewFileError(path, err)
	}
	return text, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
