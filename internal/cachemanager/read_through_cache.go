package cachemanager

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/zjrosen/barangay/internal/tracing"
)

// ReadThroughCache serves from cache and falls back to fn on a miss.
// Concurrent misses for the same key share a single fn call, which runs
// detached from any one caller's cancellation. Errors are never cached.
type ReadThroughCache[K ~string, V any, I any] struct {
	cache CacheManager[K, V]
	fn    func(ctx context.Context, input I) (V, error)
	ttl   time.Duration
	group singleflight.Group
}

// NewReadThroughCache wraps fn. A nil cache or a negative ttl bypasses caching.
func NewReadThroughCache[K ~string, V any, I any](
	cache CacheManager[K, V],
	fn func(ctx context.Context, input I) (V, error),
	ttl time.Duration,
) *ReadThroughCache[K, V, I] {
	return &ReadThroughCache[K, V, I]{
		cache: cache,
		fn:    fn,
		ttl:   ttl,
	}
}

func (r *ReadThroughCache[K, V, I]) skip() bool {
	return r.cache == nil || r.ttl < 0
}

// Get returns the cached value for key or loads it with input. A caller
// whose ctx ends stops waiting; the shared load keeps running for the
// others. Hits and misses are recorded on the span in ctx.
func (r *ReadThroughCache[K, V, I]) Get(ctx context.Context, key K, input I) (V, error) {
	if r.skip() {
		return r.fn(ctx, input)
	}

	span := trace.SpanFromContext(ctx)
	if value, ok := r.cache.Get(ctx, key); ok {
		span.SetAttributes(attribute.Bool(tracing.AttrCacheHit, true))
		return value, nil
	}
	span.SetAttributes(attribute.Bool(tracing.AttrCacheHit, false))

	loadCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(string(key), func() (any, error) {
		value, err := r.fn(loadCtx, input)
		if err != nil {
			return value, err
		}
		r.cache.Set(loadCtx, key, value, r.ttl)
		return value, nil
	})

	select {
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	case res := <-ch:
		value, _ := res.Val.(V)
		return value, res.Err
	}
}

// Invalidate drops every cached entry.
func (r *ReadThroughCache[K, V, I]) Invalidate(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Flush(ctx)
}
