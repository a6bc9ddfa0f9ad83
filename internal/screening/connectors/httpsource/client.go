// Package httpsource is the outbound HTTP/JSON client shared by the
// connectors. It turns transport and status failures into categorized
// connectors.SourceError values.
package httpsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"screener/internal/screening/connectors"
)

const (
	defaultTimeout = 5 * time.Second
	maxBodyBytes   = 4 << 20
)

// Client calls one source's JSON API.
type Client struct {
	sourceID   string
	baseURL    string
	apiKey     string
	authHeader string
	httpClient *http.Client
}

type Option func(*Client)

// WithAPIKey sends key in header on every request.
func WithAPIKey(header, key string) Option {
	return func(c *Client) {
		c.authHeader = header
		c.apiKey = key
	}
}

// WithHTTPClient replaces the default client, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each request end to end.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func New(sourceID, baseURL string, opts ...Option) *Client {
	c := &Client{
		sourceID:   sourceID,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// GetJSON issues GET baseURL+path?query and decodes a 2xx body into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return connectors.NewSourceError(connectors.ErrorInternal, c.sourceID, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(c.authHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportError(err)
	}
	defer resp.Body.Close()

	if err := c.statusError(resp); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return err
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return connectors.NewSourceError(connectors.ErrorBadData, c.sourceID, "decode response", err)
	}
	return nil
}

func (c *Client) transportError(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return connectors.NewSourceError(connectors.ErrorTimeout, c.sourceID, "request timed out", err)
	case errors.Is(err, context.Canceled):
		return connectors.NewSourceError(connectors.ErrorCancelled, c.sourceID, "request canceled", err)
	}
	return connectors.NewSourceError(connectors.ErrorSourceOutage, c.sourceID, "transport failure", err)
}

func (c *Client) statusError(resp *http.Response) error {
	code := resp.StatusCode
	msg := fmt.Sprintf("status %d", code)
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return connectors.NewSourceError(connectors.ErrorNotFound, c.sourceID, msg, nil)
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return connectors.NewSourceError(connectors.ErrorTimeout, c.sourceID, msg, nil)
	case code == http.StatusTooManyRequests:
		return connectors.NewSourceError(connectors.ErrorRateLimited, c.sourceID, msg, nil)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return connectors.NewSourceError(connectors.ErrorAuthentication, c.sourceID, msg, nil)
	case code >= 500:
		return connectors.NewSourceError(connectors.ErrorSourceOutage, c.sourceID, msg, nil)
	}
	return connectors.NewSourceError(connectors.ErrorBadRequest, c.sourceID, msg, nil)
}
