// Package db is the storage facade used by the Redis-backed vector store and the embedding cache.
package db

import (
	"context"
	"time"
)

// Store is everything the rueidis implementation offers. Consumers declare the
// narrow subset they need instead of depending on Store.
//
//nolint:interfacebloat // facade over the sub-interfaces below
type Store interface {
	Pinger
	HashStore
	KVStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem is one hash written by HSetMulti.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore reads and writes chunk hashes.
type HashStore interface {
	// HSetMulti writes all items in one pipeline; existing fields are overwritten.
	HSetMulti(ctx context.Context, items []HashSetItem) error
	// HGetAll returns ErrKeyNotFound when the hash does not exist.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Entry is one key/value pair of a pipelined write.
type Entry struct {
	Key   string
	Value []byte
}

// KVStore holds opaque values with an optional expiry (embedding cache).
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// GetMulti returns one value per key, nil where the key is missing.
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	SetMultiWithTTL(ctx context.Context, entries []Entry, ttl time.Duration) error
}

// IndexManager owns the FT index lifecycle.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	// DropIndex removes the index; with deleteDocs the hashes under its prefix go too.
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
}

// Searcher queries FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}
