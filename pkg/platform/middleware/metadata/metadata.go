// Package metadata records who is calling: client IP, User-Agent and a
// parsed device summary.
package metadata

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"screener/pkg/requestcontext"
)

// ClientMetadata extracts client IP address and User-Agent from the request
// and adds them to the context. Apply it early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.Header.Get("User-Agent")
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), ua)
		ctx = requestcontext.WithClientDevice(ctx, DeviceSummary(ua))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DeviceSummary reduces a User-Agent to "browser/os", or "" when it cannot
// be parsed.
func DeviceSummary(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return ""
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		return "bot"
	}
	browser, _ := ua.Browser()
	osName := ua.OSInfo().Name
	switch {
	case browser == "" && osName == "":
		return ""
	case osName == "":
		return browser
	case browser == "":
		return osName
	}
	return browser + "/" + osName
}

// ClientIPFromRequest extracts the real client IP from the request, handling
// proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For lists client, proxy1, proxy2; the first is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" or "[::1]:port".
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return strings.Trim(addr[:idx], "[]")
		}
		return addr
	}

	return "unknown"
}
