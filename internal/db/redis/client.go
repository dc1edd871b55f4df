// Package redis implements db.Store on rueidis for Redis 8+ and valkey-search.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/finrag/internal/db"
)

var _ db.Store = (*Store)(nil)

// clientName identifies finrag connections in CLIENT LIST.
const clientName = "finrag"

// Readiness polling backoff bounds.
const (
	readyInitialBackoff = 50 * time.Millisecond
	readyMaxBackoff     = time.Second
)

// Config holds connection parameters for a Redis or Valkey store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	// Valkey switches on fallbacks for commands valkey-search lacks
	// (bare "*" FT.SEARCH and FT.DROPINDEX DD).
	Valkey bool
	// WriteTimeout bounds one pipelined write; zero keeps the rueidis default.
	WriteTimeout time.Duration
}

// Store implements db.Store via rueidis.
type Store struct {
	client rueidis.Client
	valkey bool
}

// NewStore connects to the configured addresses.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("store: at least one address is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:      cfg.Addrs,
		Username:         cfg.Username,
		Password:         cfg.Password,
		SelectDB:         cfg.DB,
		ClientName:       clientName,
		ConnWriteTimeout: cfg.WriteTimeout,
		DisableCache:     true,
		AlwaysRESP2:      true, // KNN reply parsing expects the RESP2 flat array
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", strings.Join(cfg.Addrs, ","), err)
	}

	return &Store{client: client, valkey: cfg.Valkey}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings until the store answers or timeout expires, backing off
// exponentially between attempts.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backoff := readyInitialBackoff
	var lastErr error
	for {
		if lastErr = s.Ping(ctx); lastErr == nil {
			return nil
		}

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("store not ready after %s: %w", timeout, lastErr)
		case <-t.C:
		}
		backoff = min(backoff*2, readyMaxBackoff)
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// isRedisErr reports whether err is a server reply containing any of substrs, ignoring case.
func isRedisErr(err error, substrs ...string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	msg := strings.ToLower(re.Error())
	for _, sub := range substrs {
		if strings.Contains(msg, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// isUnknownIndex matches the "no such index" replies of Redis and valkey-search.
func isUnknownIndex(err error) bool {
	return isRedisErr(err, "unknown index name", "no such index", "not found")
}
