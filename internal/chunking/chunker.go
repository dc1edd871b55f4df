package chunking

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/finrag/internal/domain/chunk"
)

// Segment is the ordered sentence list of one chunk, overlap included.
type Segment struct {
	Sentences []string
}

// Content joins the sentences with single spaces.
func (s Segment) Content() string { return strings.Join(s.Sentences, " ") }

// Chunker greedily packs sentences into chunks of at most Threshold characters
// and seeds every chunk after the first with trailing sentences of its predecessor.
type Chunker struct {
	threshold int
	overlap   int
}

// New creates a Chunker. threshold must be positive, overlap non-negative.
func New(threshold, overlap int) (*Chunker, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", threshold)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must be non-negative, got %d", overlap)
	}
	return &Chunker{threshold: threshold, overlap: overlap}, nil
}

// Threshold returns the chunk size limit in characters.
func (c *Chunker) Threshold() int { return c.threshold }

// Overlap returns the overlap budget in characters.
func (c *Chunker) Overlap() int { return c.overlap }

// Split runs the accumulate/flush loop over the sentences of text.
//
// A chunk is flushed when appending the next sentence would push its content
// over the threshold. The next buffer starts with OverlapCount trailing
// sentences, minus the oldest ones that would leave no room for the incoming
// sentence, but never fewer than one. A chunk can therefore exceed the
// threshold only as a single sentence or as one carried sentence plus the
// sentence that caused the flush.
func (c *Chunker) Split(text string) []Segment {
	var (
		segments []Segment
		buf      []string
	)

	for _, s := range SplitSentences(text) {
		if len(buf) > 0 && joinedLen(buf)+1+Len(s) > c.threshold {
			segments = append(segments, Segment{Sentences: buf})
			buf = c.carry(buf, s)
		}
		buf = append(buf, s)
	}

	if len(buf) > 0 {
		segments = append(segments, Segment{Sentences: buf})
	}
	return segments
}

// carry returns a fresh buffer seeded with the overlap of prev. Oldest overlap
// sentences are dropped while they leave no room for s; the last one always stays.
func (c *Chunker) carry(prev []string, s string) []string {
	tail := prev[len(prev)-OverlapCount(prev, c.overlap):]
	for len(tail) > 1 && joinedLen(tail)+1+Len(s) > c.threshold {
		tail = tail[1:]
	}

	buf := make([]string, len(tail), len(tail)+1)
	copy(buf, tail)
	return buf
}

// Chunk splits text and builds numbered chunks carrying a copy of base metadata each.
func (c *Chunker) Chunk(text string, base chunk.Metadata) ([]chunk.DocumentChunk, error) {
	segments := c.Split(text)
	chunks := make([]chunk.DocumentChunk, 0, len(segments))

	for i, seg := range segments {
		ch, err := BuildChunk(seg.Sentences, base, i)
		if err != nil {
			return nil, fmt.Errorf("build chunk %d: %w", i, err)
		}
		chunks = append(chunks, ch)
	}
	return chunks, nil
}
