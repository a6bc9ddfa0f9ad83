package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"screener/pkg/requestcontext"
)

func TestClientIPFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded for takes first hop", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, remote: "10.0.0.2:4000", want: "203.0.113.7"},
		{name: "real ip header", headers: map[string]string{"X-Real-IP": " 198.51.100.4 "}, remote: "10.0.0.2:4000", want: "198.51.100.4"},
		{name: "remote addr ipv4", remote: "192.0.2.1:5555", want: "192.0.2.1"},
		{name: "remote addr ipv6", remote: "[::1]:5555", want: "::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(r))
		})
	}
}

func TestClientMetadata(t *testing.T) {
	var gotIP, gotUA, gotDevice string
	h := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = requestcontext.ClientIP(r.Context())
		gotUA = requestcontext.UserAgent(r.Context())
		gotDevice = requestcontext.ClientDevice(r.Context())
	}))

	ua := "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.10:1234"
	r.Header.Set("User-Agent", ua)
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "192.0.2.10", gotIP)
	assert.Equal(t, ua, gotUA)
	assert.Contains(t, gotDevice, "Chrome")
}

func TestDeviceSummary_Empty(t *testing.T) {
	assert.Equal(t, "", DeviceSummary("   "))
}
