// Package middleware implements spec.md §4.3's request pipeline: named,
// reusable middleware values composed once per router at snapshot-build
// time (the teacher built its equivalent chain inline, per-request, inside
// Gateway.ServeHTTP; here it's a value so a hot reload can rebuild only the
// routers that changed).
package middleware

import (
	"context"
	"net/http"
)

// Response is what a Handler produces; for the common case it's just "the
// real proxy response", but middlewares like errors/redirect/basicauth can
// short-circuit with a synthetic one.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte // only populated for short-circuit responses
}

// Handler is the terminal proxy call or the next link in a chain.
type Handler func(ctx context.Context, w http.ResponseWriter, r *http.Request) error

// Middleware wraps a Handler with pre/post request processing. Process may
// call next zero times (short-circuit), once (the common case) or, for
// retry, more than once.
type Middleware interface {
	Process(ctx context.Context, w http.ResponseWriter, r *http.Request, next Handler) error
}

// MiddlewareFunc adapts a plain function to Middleware.
type MiddlewareFunc func(ctx context.Context, w http.ResponseWriter, r *http.Request, next Handler) error

func (f MiddlewareFunc) Process(ctx context.Context, w http.ResponseWriter, r *http.Request, next Handler) error {
	return f(ctx, w, r, next)
}

// Chain right-folds mws around terminal so the first middleware in the list
// runs first (spec.md's build order): Chain([a,b,c], terminal) is
// a(b(c(terminal))).
func Chain(mws []Middleware, terminal Handler) Handler {
	h := terminal
	for i := len(mws) - 1; i >= 0; i-- {
		mw := mws[i]
		next := h
		h = func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			return mw.Process(ctx, w, r, next)
		}
	}
	return h
}
