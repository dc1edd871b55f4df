package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/finrag/internal/db"
)

// HSetMulti writes every chunk hash in one DoMulti round-trip.
// The first failed key is reported.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, 0, len(items))
	for _, item := range items {
		kv := s.b().Hset().Key(item.Key).FieldValue()
		for field, value := range item.Fields {
			kv = kv.FieldValue(field, value)
		}
		cmds = append(cmds, kv.Build())
	}

	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Key: items[i].Key, Err: err}
		}
	}
	return nil
}

// HGetAll returns all fields of a hash, or db.ErrKeyNotFound when it does not exist.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.do(ctx, s.b().Hgetall().Key(key).Build()).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Key: key, Err: err}
	}
	if len(m) == 0 {
		return nil, db.ErrKeyNotFound
	}
	return m, nil
}
