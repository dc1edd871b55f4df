package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/finrag/internal/db"
)

// Get reads a cached value, or db.ErrKeyNotFound on a miss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.do(ctx, s.b().Get().Key(key).Build()).AsBytes()
	switch {
	case rueidis.IsRedisNil(err):
		return nil, db.ErrKeyNotFound
	case err != nil:
		return nil, &db.Error{Op: db.OpGet, Key: key, Err: err}
	}
	return data, nil
}

// SetWithTTL stores value, expiring it after ttl. A non-positive ttl keeps it forever.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.do(ctx, s.setCmd(key, value, ttl)).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Key: key, Err: err}
	}
	return nil
}

// GetMulti pipelines one GET per key. Per-key GETs instead of MGET keep the
// batch valid on a cluster, where keys hash to different slots.
func (s *Store) GetMulti(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Get().Key(key).Build()
	}

	out := make([][]byte, len(keys))
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		data, err := res.AsBytes()
		switch {
		case rueidis.IsRedisNil(err):
		case err != nil:
			return nil, &db.Error{Op: db.OpGet, Key: keys[i], Err: err}
		default:
			out[i] = data
		}
	}
	return out, nil
}

// SetMultiWithTTL pipelines one SET per entry. The first failed key is reported.
func (s *Store) SetMultiWithTTL(ctx context.Context, entries []db.Entry, ttl time.Duration) error {
	if len(entries) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, len(entries))
	for i, e := range entries {
		cmds[i] = s.setCmd(e.Key, e.Value, ttl)
	}
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpSet, Key: entries[i].Key, Err: err}
		}
	}
	return nil
}

func (s *Store) setCmd(key string, value []byte, ttl time.Duration) rueidis.Completed {
	set := s.b().Set().Key(key).Value(rueidis.BinaryString(value))
	if ttl > 0 {
		return set.Ex(ttl).Build()
	}
	return set.Build()
}
