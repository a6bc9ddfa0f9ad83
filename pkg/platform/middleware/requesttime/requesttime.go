// Package requesttime pins one "now" per HTTP request so report timestamps
// and history entries written during the request agree.
package requesttime

import (
	"net/http"
	"time"

	"screener/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return MiddlewareWithClock(time.Now)(next)
}

// MiddlewareWithClock is Middleware with an injectable time source.
func MiddlewareWithClock(now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), now().UTC())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
