// Package client is a typed HTTP client for the sandbox API. The CLI uses
// it to talk to a running server; it is also importable by programs that
// want sandboxed execution without speaking HTTP by hand.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prith27/lra/internal/kernel"
	"github.com/prith27/lra/internal/manager"
)

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client talks to a sandbox API server.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the bearer key sent on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// New creates a client for the server at baseURL, e.g. "http://127.0.0.1:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health checks whether the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// CreateSandbox provisions a new sandbox for the given language.
func (c *Client) CreateSandbox(ctx context.Context, lang string) (manager.Info, error) {
	var info manager.Info
	body := map[string]string{"lang": lang}
	err := c.do(ctx, http.MethodPost, "/sandboxes", body, &info)
	return info, err
}

// ListSandboxes returns all active sandboxes.
func (c *Client) ListSandboxes(ctx context.Context) ([]manager.Info, error) {
	var infos []manager.Info
	err := c.do(ctx, http.MethodGet, "/sandboxes", nil, &infos)
	return infos, err
}

// GetSandbox returns a single sandbox by id.
func (c *Client) GetSandbox(ctx context.Context, id string) (manager.Info, error) {
	var info manager.Info
	err := c.do(ctx, http.MethodGet, "/sandboxes/"+id, nil, &info)
	return info, err
}

// Execute runs code in the given sandbox and returns the kernel result.
func (c *Client) Execute(ctx context.Context, id, code string) (kernel.Result, error) {
	var result kernel.Result
	body := map[string]string{"code": code}
	err := c.do(ctx, http.MethodPost, "/sandboxes/"+id+"/execute", body, &result)
	return result, err
}

// DeleteSandbox tears down the given sandbox.
func (c *Client) DeleteSandbox(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/sandboxes/"+id, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
