// Package client provides a typed Go SDK for the QMS REST API and the view
// logic built on it: the signing gate, signature capture, governance
// verification display and the audit trail viewer.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is the top-level QMS API client.
type Client struct {
	baseURL    string
	session    *Session
	httpClient *http.Client

	Auth       *AuthService
	Documents  *DocumentService
	Signatures *SignatureService
	Governance *GovernanceService
	Audit      *AuditService
}

// Option configures a Client.
type Option func(*Client)

// WithSession sets the session whose token authenticates every request.
func WithSession(s *Session) Option {
	return func(c *Client) { c.session = s }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a QMS client for the given base URL (e.g. "http://localhost:8080").
// Without WithSession the client uses an in-memory session.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	if c.session == nil {
		c.session = NewSession(&MemoryStore{})
	}
	c.Auth = &AuthService{c: c}
	c.Documents = &DocumentService{c: c}
	c.Signatures = &SignatureService{c: c}
	c.Governance = &GovernanceService{c: c}
	c.Audit = &AuditService{c: c}
	return c
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *Session {
	return c.session
}

// Health returns the liveness check response.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.get(ctx, "/api/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// resolve turns an API path or absolute URL into a request URL.
func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + path
}

// newRequest builds a request carrying the session token and, for a body, JSON headers.
func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do executes an HTTP request and decodes the JSON response.
func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// download streams a successful GET response body to w.
func (c *Client) download(ctx context.Context, path string, params url.Values, w io.Writer) error {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)) //nolint:errcheck // body is best-effort
		return parseAPIError(resp.StatusCode, respBody)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	return nil
}

// get is a convenience wrapper for GET requests with query parameters.
func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// post is a convenience wrapper for POST requests.
func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}
