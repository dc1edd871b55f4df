package db

import "strings"

// IndexBuilder assembles an IndexDefinition field by field.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts building an FT index definition.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name}}
}

// Prefix adds key prefixes to the index.
func (b *IndexBuilder) Prefix(prefixes ...string) *IndexBuilder {
	b.def.Prefixes = append(b.def.Prefixes, prefixes...)
	return b
}

// Numeric adds a NUMERIC field.
func (b *IndexBuilder) Numeric(name string) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldNumeric})
}

// Tag adds a TAG field.
func (b *IndexBuilder) Tag(name string) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldTag})
}

// Text adds a TEXT field.
func (b *IndexBuilder) Text(name string) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldText})
}

// Vector adds a FLOAT32 VECTOR field.
func (b *IndexBuilder) Vector(name string, dim int, algo VectorAlgorithm, distance DistanceMetric) *IndexBuilder {
	return b.add(IndexField{
		Name:           name,
		Type:           IndexFieldVector,
		VectorAlgo:     algo,
		VectorDim:      dim,
		VectorDistance: distance,
	})
}

// HNSW tunes the most recently added vector field.
func (b *IndexBuilder) HNSW(p HNSWParams) *IndexBuilder {
	for i := len(b.def.Fields) - 1; i >= 0; i-- {
		if b.def.Fields[i].Type == IndexFieldVector {
			b.def.Fields[i].HNSW = p
			break
		}
	}
	return b
}

func (b *IndexBuilder) add(f IndexField) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, f)
	return b
}

// Build validates and returns a copy of the definition; the builder stays reusable.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	def := IndexDefinition{
		Name:     b.def.Name,
		Prefixes: append([]string(nil), b.def.Prefixes...),
		Fields:   append([]IndexField(nil), b.def.Fields...),
	}
	return &def, nil
}

// String renders a short FT.CREATE-like summary for logs.
func (idx *IndexDefinition) String() string {
	var sb strings.Builder
	sb.WriteString("FT.CREATE ")
	sb.WriteString(idx.Name)
	sb.WriteString(" ON HASH")
	if len(idx.Prefixes) > 0 {
		sb.WriteString(" PREFIX ")
		sb.WriteString(strings.Join(idx.Prefixes, " "))
	}
	sb.WriteString(" SCHEMA")
	for i := range idx.Fields {
		f := &idx.Fields[i]
		sb.WriteString(" ")
		sb.WriteString(f.Name)
		sb.WriteString(" ")
		sb.WriteString(f.Type.String())
		if f.Type == IndexFieldVector {
			sb.WriteString(" ")
			sb.WriteString(string(f.VectorAlgo))
		}
	}
	return sb.String()
}
