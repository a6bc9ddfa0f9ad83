package httpsource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screener/internal/screening/connectors"
)

func TestGetJSON(t *testing.T) {
	t.Run("decodes body and sends api key", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/search", r.URL.Path)
			assert.Equal(t, "anna", r.URL.Query().Get("q"))
			assert.Equal(t, "ApiKey secret", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"value":"ok"}`))
		}))
		defer srv.Close()

		c := New("src", srv.URL+"/", WithAPIKey("Authorization", "ApiKey secret"))
		var out struct{ Value string }
		require.NoError(t, c.GetJSON(context.Background(), "/search", url.Values{"q": {"anna"}}, &out))
		assert.Equal(t, "ok", out.Value)
	})

	statuses := []struct {
		status int
		want   connectors.ErrorCategory
	}{
		{http.StatusNotFound, connectors.ErrorNotFound},
		{http.StatusRequestTimeout, connectors.ErrorTimeout},
		{http.StatusTooManyRequests, connectors.ErrorRateLimited},
		{http.StatusUnauthorized, connectors.ErrorAuthentication},
		{http.StatusServiceUnavailable, connectors.ErrorSourceOutage},
		{http.StatusBadRequest, connectors.ErrorBadRequest},
	}
	for _, tt := range statuses {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			var out map[string]any
			err := New("src", srv.URL).GetJSON(context.Background(), "/", nil, &out)
			require.Error(t, err)
			assert.Equal(t, tt.want, connectors.GetCategory(err))
		})
	}

	t.Run("malformed body is bad data", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{not json`))
		}))
		defer srv.Close()

		var out map[string]any
		err := New("src", srv.URL).GetJSON(context.Background(), "/", nil, &out)
		assert.Equal(t, connectors.ErrorBadData, connectors.GetCategory(err))
	})

	t.Run("slow source times out", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		var out map[string]any
		err := New("src", srv.URL, WithTimeout(50*time.Millisecond)).GetJSON(context.Background(), "/", nil, &out)
		require.Error(t, err)
		assert.Equal(t, connectors.ErrorTimeout, connectors.GetCategory(err))
		assert.True(t, connectors.IsRetryable(err))
	})

	t.Run("caller cancellation is not a timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(20*time.Millisecond, cancel)

		var out map[string]any
		err := New("src", srv.URL, WithTimeout(5*time.Second)).GetJSON(ctx, "/", nil, &out)
		require.Error(t, err)
		assert.Equal(t, connectors.ErrorCancelled, connectors.GetCategory(err))
		assert.False(t, connectors.IsRetryable(err))
	})

	t.Run("unreachable host is an outage", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		var out map[string]any
		err := New("src", addr).GetJSON(context.Background(), "/", nil, &out)
		assert.Equal(t, connectors.ErrorSourceOutage, connectors.GetCategory(err))
	})
}
