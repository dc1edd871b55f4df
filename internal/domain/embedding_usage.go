package domain

import (
	"context"
	"sync/atomic"
)

type usageKey struct{}

// EmbeddingUsage tallies the embedding calls made while serving one request.
// It is safe for concurrent use; a nil *EmbeddingUsage ignores updates.
type EmbeddingUsage struct {
	tokens atomic.Int64
	calls  atomic.Int64
}

// NewContextWithUsage attaches a fresh tally to ctx.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := new(EmbeddingUsage)
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext returns the tally attached to ctx, or nil.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(usageKey{}).(*EmbeddingUsage)
	return u
}

// AddTokens records one embedding call that consumed n tokens.
// Cache hits report n == 0 and still count as a call.
func (u *EmbeddingUsage) AddTokens(n int) {
	if u == nil {
		return
	}
	u.tokens.Add(int64(n))
	u.calls.Add(1)
}

// Tokens is the total consumed so far.
func (u *EmbeddingUsage) Tokens() int {
	if u == nil {
		return 0
	}
	return int(u.tokens.Load())
}

// Calls is the number of embedding calls recorded.
func (u *EmbeddingUsage) Calls() int {
	if u == nil {
		return 0
	}
	return int(u.calls.Load())
}

// Used reports whether any embedding call was made.
func (u *EmbeddingUsage) Used() bool { return u.Calls() > 0 }
