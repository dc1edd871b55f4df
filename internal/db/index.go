package db

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DistanceMetric used by FT.SEARCH vector similarity queries.
type DistanceMetric string

// Supported distance metrics.
const (
	DistanceL2     DistanceMetric = "L2"
	DistanceIP     DistanceMetric = "IP"
	DistanceCosine DistanceMetric = "COSINE"
)

// ParseDistance maps a config value ("cosine", "l2", "ip") to a DistanceMetric.
// Empty selects cosine.
func ParseDistance(s string) (DistanceMetric, error) {
	switch d := DistanceMetric(strings.ToUpper(strings.TrimSpace(s))); d {
	case DistanceL2, DistanceIP, DistanceCosine:
		return d, nil
	case "":
		return DistanceCosine, nil
	default:
		return "", fmt.Errorf("unknown distance metric %q", s)
	}
}

// VectorAlgorithm selects the indexing algorithm for vector fields in FT.CREATE.
type VectorAlgorithm string

// Supported vector index algorithms.
const (
	VectorHNSW VectorAlgorithm = "HNSW"
	VectorFlat VectorAlgorithm = "FLAT"
)

// ParseAlgorithm maps a config value ("hnsw", "flat") to a VectorAlgorithm.
// Empty selects HNSW.
func ParseAlgorithm(s string) (VectorAlgorithm, error) {
	switch a := VectorAlgorithm(strings.ToUpper(strings.TrimSpace(s))); a {
	case VectorHNSW, VectorFlat:
		return a, nil
	case "":
		return VectorHNSW, nil
	default:
		return "", fmt.Errorf("unknown vector algorithm %q", s)
	}
}

// HNSWParams tunes an HNSW vector field. Zero values leave the server default.
type HNSWParams struct {
	M              int // max outgoing edges per node
	EFConstruction int // candidate list size while building
}

// IsZero reports whether no parameter is set.
func (p HNSWParams) IsZero() bool { return p.M == 0 && p.EFConstruction == 0 }

func (p HNSWParams) validate() error {
	if p.M < 0 || p.EFConstruction < 0 {
		return fmt.Errorf("hnsw params must be non-negative (m=%d, ef_construction=%d)", p.M, p.EFConstruction)
	}
	return nil
}

// IndexFieldType enumerates supported FT index field types.
type IndexFieldType int

// Field types a chunk hash is indexed with.
const (
	IndexFieldNumeric IndexFieldType = iota
	IndexFieldTag
	IndexFieldText
	IndexFieldVector
)

func (t IndexFieldType) String() string {
	switch t {
	case IndexFieldNumeric:
		return "NUMERIC"
	case IndexFieldTag:
		return "TAG"
	case IndexFieldText:
		return "TEXT"
	case IndexFieldVector:
		return "VECTOR"
	default:
		return fmt.Sprintf("IndexFieldType(%d)", int(t))
	}
}

// IndexField describes a single field in an FT index schema.
// The Vector* fields and HNSW apply to IndexFieldVector only.
type IndexField struct {
	Name string
	Type IndexFieldType

	VectorAlgo     VectorAlgorithm
	VectorDim      int
	VectorDistance DistanceMetric
	HNSW           HNSWParams
}

// IndexDefinition is a complete FT index definition over HASH keys.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}

var identifierRe = regexp.MustCompile(`^[a-zA-Z0-9_:-]+$`)

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !identifierRe.MatchString(idx.Name) {
		return fmt.Errorf("index name %q contains invalid characters", idx.Name)
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]struct{}, len(idx.Fields))
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("field %d: name is required", i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate field name %q", f.Name)
		}
		seen[f.Name] = struct{}{}

		if f.Type != IndexFieldVector {
			continue
		}
		if f.VectorDim <= 0 {
			return fmt.Errorf("vector field %q: DIM must be positive", f.Name)
		}
		if err := f.HNSW.validate(); err != nil {
			return fmt.Errorf("vector field %q: %w", f.Name, err)
		}
		if f.VectorAlgo == VectorFlat && !f.HNSW.IsZero() {
			return fmt.Errorf("vector field %q: hnsw params set on a FLAT index", f.Name)
		}
	}
	return nil
}

// KeyPrefix derives the hash key prefix covered by an index named "<prefix>:idx".
func KeyPrefix(index string) string {
	if base, ok := strings.CutSuffix(index, ":idx"); ok {
		return base + ":"
	}
	return index + ":"
}
