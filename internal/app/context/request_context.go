package context

import (
	"context"
	"sync"
)

type ctxKey struct{}

// RequestContext memoizes lookups for the duration of one request.
type RequestContext struct {
	ctx   context.Context
	cache sync.Map
}

// New creates a new RequestContext wrapping the given context.
func New(ctx context.Context) *RequestContext {
	return &RequestContext{ctx: ctx}
}

// FromContext extracts RequestContext, returns nil if not present.
func FromContext(ctx context.Context) *RequestContext {
	if ctx == nil {
		return nil
	}

	if rc, ok := ctx.Value(ctxKey{}).(*RequestContext); ok {
		return rc
	}

	return nil
}

// WithContext stores RequestContext in the context.
func WithContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// Ensure returns the RequestContext carried by ctx, attaching a fresh one if absent.
func Ensure(ctx context.Context) (context.Context, *RequestContext) {
	if rc := FromContext(ctx); rc != nil {
		return ctx, rc
	}

	rc := New(ctx)

	return WithContext(ctx, rc), rc
}

// GetOrFetch returns the cached value for key or runs fetchFn and caches its result.
// Errors are not cached.
func (rc *RequestContext) GetOrFetch(key string, fetchFn func(ctx context.Context) (any, error)) (any, error) {
	if cached, ok := rc.cache.Load(key); ok {
		return cached, nil
	}

	value, err := fetchFn(rc.ctx)
	if err != nil {
		return nil, err
	}

	actual, _ := rc.cache.LoadOrStore(key, value)

	return actual, nil
}

// Lookup returns the cached value for key without fetching.
func (rc *RequestContext) Lookup(key string) (any, bool) {
	return rc.cache.Load(key)
}

// Prime stores value under key unless a value is already cached.
func (rc *RequestContext) Prime(key string, value any) {
	rc.cache.LoadOrStore(key, value)
}

// Context returns the underlying context.
func (rc *RequestContext) Context() context.Context {
	return rc.ctx
}
