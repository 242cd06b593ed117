// Package requestctx carries per-request metadata. The values live behind a
// pointer so that middleware wrapping the handler chain can read what inner
// middleware learned, such as the authenticated actor.
package requestctx

import (
	"context"
	"sync"
)

type ctxKey struct{}

type meta struct {
	requestID string

	mu    sync.Mutex
	actor string
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, &meta{requestID: requestID})
}

func GetRequestID(ctx context.Context) string {
	if m, ok := ctx.Value(ctxKey{}).(*meta); ok {
		return m.requestID
	}
	return ""
}

// SetActor records the caller on the request. It is a no-op outside a
// request context.
func SetActor(ctx context.Context, actorID string) {
	if m, ok := ctx.Value(ctxKey{}).(*meta); ok {
		m.mu.Lock()
		m.actor = actorID
		m.mu.Unlock()
	}
}

func Actor(ctx context.Context) string {
	m, ok := ctx.Value(ctxKey{}).(*meta)
	if !ok {
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.actor
}
