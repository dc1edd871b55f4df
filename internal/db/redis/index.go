package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/finrag/internal/db"
)

// CreateIndex runs FT.CREATE for def. An existing index yields db.ErrIndexExists.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := createArgs(def)
	if err != nil {
		return err
	}

	if err := s.do(ctx, s.b().Arbitrary(db.OpCreateIndex).Args(args...).Build()).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Key: def.Name, Err: err}
	}
	return nil
}

// DropIndex removes an FT index. With deleteDocs the hashes under its key prefix
// go too: Redis drops them server-side (DD), valkey-search has no DD so they are
// unlinked page by page.
func (s *Store) DropIndex(ctx context.Context, name string, deleteDocs bool) error {
	args := []string{name}
	if deleteDocs && !s.valkey {
		args = append(args, "DD")
	}

	if err := s.do(ctx, s.b().Arbitrary(db.OpDropIndex).Args(args...).Build()).Error(); err != nil {
		if isUnknownIndex(err) {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Key: name, Err: err}
	}

	if deleteDocs && s.valkey {
		if _, err := s.purgePrefix(ctx, db.KeyPrefix(name)); err != nil {
			return fmt.Errorf("purge %s: %w", name, err)
		}
	}
	return nil
}

// createArgs renders the FT.CREATE arguments after the command name.
func createArgs(idx *db.IndexDefinition) ([]string, error) {
	if err := idx.Validate(); err != nil {
		return nil, err
	}

	args := []string{idx.Name, "ON", "HASH"}
	if n := len(idx.Prefixes); n > 0 {
		args = append(args, "PREFIX", strconv.Itoa(n))
		args = append(args, idx.Prefixes...)
	}
	args = append(args, "SCHEMA")

	for i := range idx.Fields {
		f := &idx.Fields[i]
		switch f.Type {
		case db.IndexFieldNumeric, db.IndexFieldTag, db.IndexFieldText:
			args = append(args, f.Name, f.Type.String())
		case db.IndexFieldVector:
			args = append(args, vectorArgs(f)...)
		default:
			return nil, errors.New("unknown field type " + f.Type.String())
		}
	}
	return args, nil
}

// vectorArgs renders "<name> VECTOR <algo> <nattrs> <attrs...>".
func vectorArgs(f *db.IndexField) []string {
	algo := f.VectorAlgo
	if algo == "" {
		algo = db.VectorHNSW
	}
	distance := f.VectorDistance
	if distance == "" {
		distance = db.DistanceCosine
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(f.VectorDim),
		"DISTANCE_METRIC", string(distance),
	}
	if algo == db.VectorHNSW {
		if f.HNSW.M > 0 {
			attrs = append(attrs, "M", strconv.Itoa(f.HNSW.M))
		}
		if f.HNSW.EFConstruction > 0 {
			attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(f.HNSW.EFConstruction))
		}
	}

	return append([]string{f.Name, "VECTOR", string(algo), strconv.Itoa(len(attrs))}, attrs...)
}
