// Package httpclient implements the record API port over HTTP. Api
// actions and screen endpoints resolve against the backend this client
// points at.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/terahq/tera/ports"
)

// Client calls record endpoints on a backend service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	headers    map[string]string
}

// Config configures the client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Headers map[string]string
}

// New creates a record API client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		headers:    cfg.Headers,
	}
}

// Call invokes method on the endpoint with an optional JSON body. The
// response body is decoded as JSON when present; a non-JSON or empty
// body yields a nil map, never an error, since backends are free to
// answer 204.
func (c *Client) Call(ctx context.Context, method, endpoint string, body map[string]any) (ports.APIResponse, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return ports.APIResponse{}, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bodyReader)
	if err != nil {
		return ports.APIResponse{}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ports.APIResponse{}, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	out := ports.APIResponse{StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return out, fmt.Errorf("read response: %w", err)
	}
	if len(raw) > 0 {
		var decoded map[string]any
		if json.Unmarshal(raw, &decoded) == nil {
			out.Body = decoded
		}
	}

	return out, nil
}

var _ ports.RecordAPI = (*Client)(nil)
