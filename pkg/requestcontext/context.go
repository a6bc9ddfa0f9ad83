// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services and stores read them without
// importing net/http.
//
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Tests inject them directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

type (
	clientIPKey     struct{}
	userAgentKey    struct{}
	clientDeviceKey struct{}
	requestIDKey    struct{}
	requestTimeKey  struct{}
)

var (
	ContextKeyClientIP     = clientIPKey{}
	ContextKeyUserAgent    = userAgentKey{}
	ContextKeyClientDevice = clientDeviceKey{}
	ContextKeyRequestID    = requestIDKey{}
	ContextKeyRequestTime  = requestTimeKey{}
)

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the raw User-Agent from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		return ua
	}
	return ""
}

// ClientDevice retrieves the parsed "browser/os" summary of the User-Agent.
func ClientDevice(ctx context.Context) string {
	if d, ok := ctx.Value(ContextKeyClientDevice).(string); ok {
		return d
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent into a context.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyClientIP, clientIP)
	ctx = context.WithValue(ctx, ContextKeyUserAgent, userAgent)
	return ctx
}

// WithClientDevice injects a parsed device summary into a context.
func WithClientDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, ContextKeyClientDevice, device)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() outside of HTTP requests.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
