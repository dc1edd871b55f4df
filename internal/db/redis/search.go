package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/finrag/internal/db"
)

// SearchKNN runs a KNN vector similarity search via FT.SEARCH.
// Entries come back nearest first with the raw distance.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	field := q.VectorField
	if field == "" {
		field = db.DefaultVectorField
	}

	query := fmt.Sprintf("*=>[KNN %d @%s $BLOB AS %s]", q.K, field, db.DistanceField)
	args := []string{q.IndexName, query}

	if len(q.ReturnFields) > 0 {
		ret := append([]string{db.DistanceField}, q.ReturnFields...)
		args = append(args, "RETURN", strconv.Itoa(len(ret)))
		args = append(args, ret...)
	}

	args = append(args,
		"SORTBY", db.DistanceField,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", db.EncodeVector(q.Vector),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary(db.OpSearch).Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isUnknownIndex(err) {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpSearch, Key: q.IndexName, Err: err}
	}

	return parseKNNResult(raw)
}

// SearchCount returns document count via FT.SEARCH with LIMIT 0 0.
// valkey-search rejects a bare "*" query, so Valkey counts keys by SCAN instead.
func (s *Store) SearchCount(ctx context.Context, index, query string) (int, error) {
	if s.valkey && query == "*" {
		n, err := s.countPrefix(ctx, db.KeyPrefix(index))
		if err != nil {
			return 0, fmt.Errorf("count %s: %w", index, err)
		}
		return n, nil
	}

	cmd := s.b().Arbitrary(db.OpSearch).Args(index, query, "LIMIT", "0", "0").Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isUnknownIndex(err) {
			return 0, db.ErrIndexNotFound
		}
		return 0, &db.Error{Op: db.OpSearch, Key: index, Err: err}
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

// parseKNNResult decodes the RESP2 reply [total, key1, [f, v, ...], key2, ...].
// Malformed entries are skipped; the distance pseudo-field moves into SearchEntry.Distance.
func parseKNNResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	res := &db.SearchResult{Total: int(total), Entries: make([]db.SearchEntry, 0, (len(raw)-1)/2)}
	for i := 1; i+1 < len(raw); i += 2 {
		key, kerr := raw[i].ToString()
		pairs, ferr := raw[i+1].ToArray()
		if kerr != nil || ferr != nil {
			continue
		}

		fields := fieldMap(pairs)
		entry := db.SearchEntry{Key: key, Fields: fields}
		if d, ok := fields[db.DistanceField]; ok {
			entry.Distance, _ = strconv.ParseFloat(d, 64)
			delete(fields, db.DistanceField)
		}
		res.Entries = append(res.Entries, entry)
	}
	return res, nil
}

func fieldMap(pairs []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(pairs)/2)
	for j := 0; j+1 < len(pairs); j += 2 {
		name, nerr := pairs[j].ToString()
		value, verr := pairs[j+1].ToString()
		if nerr == nil && verr == nil {
			m[name] = value
		}
	}
	return m
}
