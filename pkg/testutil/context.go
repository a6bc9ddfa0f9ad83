package testutil

import (
	"context"
	"net/http"
	"time"

	"screener/pkg/requestcontext"
)

// FixedTime is the clock reading used across tests that need a stable "now".
var FixedTime = time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)

// Context returns a context carrying a request ID and FixedTime, the state
// the HTTP middleware chain would have produced.
func Context() context.Context {
	ctx := requestcontext.WithRequestID(context.Background(), "test-request")
	return requestcontext.WithTime(ctx, FixedTime)
}

// WithRequestTime pins the request-scoped time on req.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
