// Package extract computes document-level metadata once per file.
package extract

import (
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/kailas-cloud/finrag/internal/domain/chunk"
	"github.com/kailas-cloud/finrag/internal/domain/doctype"
)

// Extractor builds base and domain metadata for one configured document type.
type Extractor struct {
	docType doctype.Type
	now     func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock overrides the processed_at source.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// New creates an Extractor for docType.
func New(docType doctype.Type, opts ...Option) *Extractor {
	e := &Extractor{docType: docType, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// DocType returns the configured document type.
func (e *Extractor) DocType() doctype.Type { return e.docType }

// Base computes the fields every chunk carries. file_size is the character count of content.
func (e *Extractor) Base(path, content string) chunk.BaseMeta {
	return chunk.BaseMeta{
		Source:      path,
		Filename:    filepath.Base(path),
		FileSize:    utf8.RuneCountInString(content),
		DocType:     e.docType,
		ProcessedAt: e.now().UTC(),
	}
}

// Domain runs the rule table of the configured type. Types without one yield GeneralMeta.
func (e *Extractor) Domain(content string) chunk.DomainMeta {
	p, ok := ProfileFor(e.docType)
	if !ok {
		return chunk.GeneralMeta{Type: e.docType}
	}
	return p.Build(Apply(p.Rules, content))
}

// Extract returns base and domain metadata for a document.
func (e *Extractor) Extract(path, content string) chunk.DocumentMeta {
	return chunk.DocumentMeta{
		Base:   e.Base(path, content),
		Domain: e.Domain(content),
	}
}
