package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource (directory, collection).
	ErrNotFound = errors.New("not found")
	// ErrChunkNotFound signals a chunk id that is not in the vector store.
	ErrChunkNotFound = errors.New("document not found")
	// ErrInvalidRequest signals malformed caller input.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrFileNotFound signals a missing source file.
	ErrFileNotFound = errors.New("file not found")
	// ErrUnsupportedFileType signals an extension outside the configured set.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrEmptyDocument signals a source file without extractable text.
	ErrEmptyDocument = errors.New("empty document")
	// ErrNoContent signals that a whole ingestion produced zero chunks.
	ErrNoContent = errors.New("no content extracted")
	// ErrChunkIDCollision signals two distinct chunks hashing to the same id within one batch.
	ErrChunkIDCollision = errors.New("chunk id collision")

	// ErrRateLimited signals a rate limit hit at the embedding provider.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrStoreUnavailable signals a vector store failure.
	ErrStoreUnavailable = errors.New("vector store unavailable")
)

// FileError ties a per-file failure to its path so batch callers can report it.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }
func (e *FileError) Unwrap() error { return e.Err }

// NewFileError wraps err with the file path it belongs to.
func NewFileError(path string, err error) error {
	return &FileError{Path: path, Err: err}
}
