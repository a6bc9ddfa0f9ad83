package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// TestContext holds per-scenario HTTP state against a running screener.
type TestContext struct {
	BaseURL string
	client  *http.Client

	status  int
	headers http.Header
	body    []byte

	saved map[string]string
}

// NewTestContext returns a context talking to baseURL.
func NewTestContext(baseURL string) *TestContext {
	return &TestContext{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		saved:   make(map[string]string),
	}
}

// Reset clears response state between scenarios.
func (tc *TestContext) Reset() {
	tc.status = 0
	tc.headers = nil
	tc.body = nil
	tc.saved = make(map[string]string)
}

func (tc *TestContext) POST(path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return tc.do(http.MethodPost, path, bytes.NewReader(payload), map[string]string{"Content-Type": "application/json"})
}

func (tc *TestContext) POSTRaw(path, body string) error {
	return tc.do(http.MethodPost, path, strings.NewReader(body), map[string]string{"Content-Type": "application/json"})
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) do(method, path string, body io.Reader, headers map[string]string) error {
	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, body)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.body, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.status = resp.StatusCode
	tc.headers = resp.Header
	return nil
}

func (tc *TestContext) StatusCode() int { return tc.status }

func (tc *TestContext) Header(name string) string { return tc.headers.Get(name) }

// GetResponseField resolves a dotted path such as "summary.risk_level" or
// "history.1.action" in the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var doc any
	if err := json.Unmarshal(tc.body, &doc); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	cur := doc
	for _, part := range strings.Split(field, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("field %q not found", field)
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("index %q out of range in %q", part, field)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("field %q not found", field)
		}
	}
	return cur, nil
}

func (tc *TestContext) ResponseContains(field string) bool {
	_, err := tc.GetResponseField(field)
	return err == nil
}

// Save stores a value for later steps, such as the report token.
func (tc *TestContext) Save(key, value string) { tc.saved[key] = value }

func (tc *TestContext) Saved(key string) string { return tc.saved[key] }
