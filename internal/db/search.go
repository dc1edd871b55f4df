package db

import (
	"encoding/binary"
	"math"
)

// DefaultVectorField is the hash field holding the embedding blob.
const DefaultVectorField = "__vector"

// DistanceField is the pseudo-field FT.SEARCH returns the KNN distance in.
const DistanceField = "__vector_score"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string // defaults to DefaultVectorField
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit. Distance is the raw metric value (lower is closer).
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}

// EncodeVector packs v as little-endian FLOAT32, the layout VECTOR fields expect.
func EncodeVector(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// DecodeVector reverses EncodeVector. Trailing bytes short of a full float are ignored.
func DecodeVector(s string) []float32 {
	out := make([]float32, len(s)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32([]byte(s[i*4 : i*4+4])))
	}
	return out
}
