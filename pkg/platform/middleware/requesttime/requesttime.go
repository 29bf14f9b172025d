// Package requesttime pins one "now" per HTTP request so every timestamp taken
// while serving it (claim records, payload dates, events) agrees.
package requesttime

import (
	"context"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
)

type contextKeyRequestTime struct{}

// Middleware captures clock.Now() once at the start of the request.
// A nil clock uses the real clock.
func Middleware(clock clockwork.Clock) func(http.Handler) http.Handler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithTime(r.Context(), clock.Now())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Now returns the request-scoped time, or time.Now() outside a request.
func Now(ctx context.Context) time.Time {
	if t, ok := From(ctx); ok {
		return t
	}
	return time.Now()
}

// From reports the request-scoped time if one was captured.
func From(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(contextKeyRequestTime{}).(time.Time)
	return t, ok
}

// WithTime injects a fixed time, for tests and the CLI.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, contextKeyRequestTime{}, t)
}
