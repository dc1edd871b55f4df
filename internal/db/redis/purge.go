package redis

import (
	"context"

	"github.com/kailas-cloud/finrag/internal/db"
)

// scanPageSize is the COUNT hint per SCAN call and the UNLINK batch size.
const scanPageSize = 500

// scanPrefix walks the keyspace and calls fn with each page of keys under prefix.
func (s *Store) scanPrefix(ctx context.Context, prefix string, fn func(keys []string) error) error {
	var cursor uint64
	for {
		cmd := s.b().Scan().Cursor(cursor).Match(prefix + "*").Count(scanPageSize).Build()
		page, err := s.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return &db.Error{Op: db.OpScan, Key: prefix, Err: err}
		}
		if len(page.Elements) > 0 {
			if err := fn(page.Elements); err != nil {
				return err
			}
		}
		if cursor = page.Cursor; cursor == 0 {
			return nil
		}
	}
}

// countPrefix counts the keys under prefix.
func (s *Store) countPrefix(ctx context.Context, prefix string) (int, error) {
	n := 0
	err := s.scanPrefix(ctx, prefix, func(keys []string) error {
		n += len(keys)
		return nil
	})
	return n, err
}

// purgePrefix unlinks every key under prefix and returns how many were removed.
// UNLINK frees memory in the background, so a large collection reset does not stall the server.
func (s *Store) purgePrefix(ctx context.Context, prefix string) (int, error) {
	removed := 0
	err := s.scanPrefix(ctx, prefix, func(keys []string) error {
		n, err := s.do(ctx, s.b().Unlink().Key(keys...).Build()).AsInt64()
		if err != nil {
			return &db.Error{Op: db.OpUnlink, Key: prefix, Err: err}
		}
		removed += int(n)
		return nil
	})
	return removed, err
}
