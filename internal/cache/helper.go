package cache

import (
	"context"

	"github.com/getsentry/sentry-go"
)

// startSpan traces one cache operation when the request carries a Sentry hub.
// The returned func records hit or miss and finishes the span.
func startSpan(ctx context.Context, operation, key string) func(hit bool) {
	if sentry.GetHubFromContext(ctx) == nil {
		return func(bool) {}
	}

	span := sentry.StartSpan(ctx, "cache.inmemory."+operation)
	span.Description = "cache.inmemory." + operation
	span.Op = "db.cache"
	span.SetData("cache.key", key)

	return func(hit bool) {
		span.SetData("cache.hit", hit)
		if hit {
			span.Status = sentry.SpanStatusOK
		} else {
			span.Status = sentry.SpanStatusNotFound
		}
		span.Finish()
	}
}
