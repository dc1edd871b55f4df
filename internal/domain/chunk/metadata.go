package chunk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Base metadata keys, present on every chunk.
const (
	KeySource      = "source"
	KeyFilename    = "filename"
	KeyFileSize    = "file_size"
	KeyDocType     = "doc_type"
	KeyProcessedAt = "processed_at"
)

// Per-chunk metadata keys.
const (
	KeyChunkNumber   = "chunk_number"
	KeyChunkSize     = "chunk_size"
	KeySentenceCount = "sentence_count"
	KeyChunkID       = "chunk_id"
)

// Metadata is a flat field map. Values are string, int or bool.
type Metadata map[string]any

// Clone returns an independent copy. Values are scalars, so a shallow copy is enough.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	c := make(Metadata, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// Merge returns a new map with other's fields layered over m's.
func (m Metadata) Merge(other Metadata) Metadata {
	c := m.Clone()
	for k, v := range other {
		c[k] = v
	}
	return c
}

// String returns the string field at key, or "" when absent or of another type.
func (m Metadata) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// Int returns the int field at key.
func (m Metadata) Int(key string) (int, bool) {
	n, ok := m[key].(int)
	return n, ok
}

// Bool returns the bool field at key.
func (m Metadata) Bool(key string) (bool, bool) {
	b, ok := m[key].(bool)
	return b, ok
}

// Keys returns the field names in sorted order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks that every value is one of the supported scalar types.
func (m Metadata) Validate() error {
	for k, v := range m {
		switch v.(type) {
		case string, int, bool:
		default:
			return fmt.Errorf("metadata field %q: unsupported type %T", k, v)
		}
	}
	return nil
}

// EncodeMetadata serializes m to JSON for storage backends that keep it as one blob.
func EncodeMetadata(m Metadata) ([]byte, error) {
	if m == nil {
		m = Metadata{}
	}
	data, err := json.Marshal(map[string]any(m))
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return data, nil
}

// DecodeMetadata parses JSON written by EncodeMetadata, restoring integers as int.
func DecodeMetadata(data []byte) (Metadata, error) {
	if len(data) == 0 {
		return Metadata{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	m := make(Metadata, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case json.Number:
			n, err := val.Int64()
			if err != nil {
				m[k] = val.String()
				continue
			}
			m[k] = int(n)
		case string, bool:
			m[k] = val
		case nil:
			// null fields are dropped
		default:
			m[k] = fmt.Sprint(val)
		}
	}
	return m, nil
}
