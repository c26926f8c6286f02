package transport

import (
	"context"

	"github.com/google/uuid"
)

// Middleware transforms a Handler into an enhanced Handler.
type Middleware func(Handler) Handler

// Chain builds a middleware pipeline around a core handler. The first
// middleware is outermost.
func Chain(h Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

type requestIDKey struct{}

// WithRequestID returns a context carrying id. The orchestrator stamps its
// scoring request id here so every provider call logs under the same id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id set by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// NewRequestIDMiddleware fills Request.RequestID from the context, or with a
// fresh uuid when the caller did not set one.
func NewRequestIDMiddleware() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			if req.RequestID == "" {
				req.RequestID = RequestIDFromContext(ctx)
			}
			if req.RequestID == "" {
				req.RequestID = uuid.New().String()
			}
			return next.Handle(ctx, req)
		})
	}
}
