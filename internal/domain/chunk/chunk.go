// Package chunk holds the DocumentChunk value object and its metadata model.
package chunk

import (
	"errors"
	"strings"
)

// DocumentChunk is one contiguous slice of a source document (immutable value object).
type DocumentChunk struct {
	id       string
	content  string
	metadata Metadata
}

// New validates and creates a DocumentChunk.
// Content is trimmed and must be non-empty; metadata is copied and stamped with the chunk id.
func New(id, content string, md Metadata) (DocumentChunk, error) {
	if id == "" {
		return DocumentChunk{}, errors.New("chunk ID is required")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return DocumentChunk{}, errors.New("chunk content is required")
	}
	if err := md.Validate(); err != nil {
		return DocumentChunk{}, err
	}

	m := md.Clone()
	m[KeyChunkID] = id

	return DocumentChunk{id: id, content: content, metadata: m}, nil
}

// Reconstruct creates a DocumentChunk without validation (storage hydration).
func Reconstruct(id, content string, md Metadata) DocumentChunk {
	return DocumentChunk{id: id, content: content, metadata: md}
}

// ID returns the chunk identifier.
func (c *DocumentChunk) ID() string { return c.id }

// Content returns the chunk text.
func (c *DocumentChunk) Content() string { return c.content }

// Metadata returns a copy of the chunk metadata.
func (c *DocumentChunk) Metadata() Metadata { return c.metadata.Clone() }

// Filename returns the source file name recorded in metadata.
func (c *DocumentChunk) Filename() string { return c.metadata.String(KeyFilename) }

// Number returns the zero-based position of the chunk in its document.
func (c *DocumentChunk) Number() int {
	n, _ := c.metadata.Int(KeyChunkNumber)
	return n
}

// DocType returns the document type recorded in metadata.
func (c *DocumentChunk) DocType() string { return c.metadata.String(KeyDocType) }
