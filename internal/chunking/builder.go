package chunking

import (
	"crypto/md5" //nolint:gosec // identifier derivation, not security
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/kailas-cloud/finrag/internal/domain/chunk"
)

// IDLength is the number of hex characters kept from the digest.
const IDLength = 12

// ChunkID derives the stable identifier of chunk n of filename.
func ChunkID(filename string, n int) string {
	sum := md5.Sum([]byte(filename + "_" + strconv.Itoa(n))) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])[:IDLength]
}

// BuildChunk turns a sentence buffer into a DocumentChunk numbered n.
// base is copied, never mutated.
func BuildChunk(sentences []string, base chunk.Metadata, n int) (chunk.DocumentChunk, error) {
	content := strings.Join(sentences, " ")
	id := ChunkID(base.String(chunk.KeyFilename), n)

	md := base.Clone()
	md[chunk.KeyChunkNumber] = n
	md[chunk.KeyChunkSize] = Len(strings.TrimSpace(content))
	md[chunk.KeySentenceCount] = len(sentences)

	return chunk.New(id, content, md) //nolint:wrapcheck // validation error is already descriptive
}
