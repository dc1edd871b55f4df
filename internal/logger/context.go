package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// NewContext returns ctx carrying l.
func NewContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger carried by ctx, or fallback. A nil fallback
// becomes a no-op logger so callers never get nil.
func FromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	if fallback == nil {
		return zap.NewNop()
	}
	return fallback
}

// With adds fields to the logger in ctx (or fallback) and stores the result
// back, so everything downstream logs them.
func With(ctx context.Context, fallback *zap.Logger, fields ...zap.Field) (context.Context, *zap.Logger) {
	l := FromContext(ctx, fallback).With(fields...)
	return NewContext(ctx, l), l
}
