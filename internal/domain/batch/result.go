// Package batch describes per-file outcomes of a multi-document run.
package batch

import (
	"path/filepath"

	"github.com/kailas-cloud/finrag/internal/domain/chunk"
)

// ItemStatus is the processing outcome of a single file.
type ItemStatus string

// File status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of processing one file in a batch.
type Result struct {
	path   string
	status ItemStatus
	bytes  int64
	chunks []chunk.DocumentChunk
	err    error
}

// NewOK creates a successful file result.
func NewOK(path string, bytes int64, chunks []chunk.DocumentChunk) Result {
	return Result{path: path, status: StatusOK, bytes: bytes, chunks: chunks}
}

// NewError creates a failed file result.
func NewError(path string, bytes int64, err error) Result {
	return Result{path: path, status: StatusError, bytes: bytes, err: err}
}

// Path returns the source path.
func (r Result) Path() string { return r.path }

// Filename returns the base name of the source path.
func (r Result) Filename() string { return filepath.Base(r.path) }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Bytes returns the on-disk size of the file.
func (r Result) Bytes() int64 { return r.bytes }

// Chunks returns the chunks produced from the file, in reading order.
func (r Result) Chunks() []chunk.DocumentChunk { return r.chunks }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Collect concatenates the chunks of all results in file-then-chunk order.
func Collect(results []Result) []chunk.DocumentChunk {
	n := 0
	for _, r := range results {
		n += len(r.chunks)
	}
	out := make([]chunk.DocumentChunk, 0, n)
	for _, r := range results {
		out = append(out, r.chunks...)
	}
	return out
}

// Errors returns the failed results.
func Errors(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.status == StatusError {
			out = append(out, r)
		}
	}
	return out
}
