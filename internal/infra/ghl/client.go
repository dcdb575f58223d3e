// Package ghl is the HTTP adapter for the LeadConnector REST and MCP APIs.
// Endpoints used:
//   - GET  {apiBase}/locations/{id}   credential check at session issuance
//   - POST {mcpBase}{endpoint}        tool invocation
//   - GET  {mcpBase}                  connectivity probe
//
// Any HTTP status is a normal Response. An error is returned only when no
// response was received (transport failure, timeout, cancellation).
package ghl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultAPIBaseURL = "https://services.leadconnectorhq.com"
	DefaultMCPBaseURL = "https://services.leadconnectorhq.com/mcp/"

	// DefaultToolTimeout bounds a proxied tool call.
	DefaultToolTimeout = 30 * time.Second
	// DefaultCheckTimeout bounds lightweight credential and connectivity checks.
	DefaultCheckTimeout = 10 * time.Second

	mimeJSON            = "application/json"
	headerContentType   = "Content-Type"
	headerAuthorization = "Authorization"
	// HeaderLocationID routes a tool call to a sub-account.
	HeaderLocationID = "locationId"

	// MaxBodyBytes caps a downstream response body.
	MaxBodyBytes = 10 << 20
)

// ErrResponseTooLarge is returned when a response body exceeds the client's
// size cap. The body is never truncated.
var ErrResponseTooLarge = errors.New("downstream response too large")

// Response is a downstream reply, body read in full.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Client talks to the vendor. It is safe for concurrent use.
type Client struct {
	apiBase      string
	mcpBase      string
	httpClient   *http.Client
	toolTimeout  time.Duration
	checkTimeout time.Duration
	maxBody      int64
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeouts overrides the tool-call and check timeouts. Zero keeps the default.
func WithTimeouts(tool, check time.Duration) Option {
	return func(c *Client) {
		if tool > 0 {
			c.toolTimeout = tool
		}
		if check > 0 {
			c.checkTimeout = check
		}
	}
}

// NewClient creates a Client. Empty base URLs fall back to the public endpoints.
func NewClient(apiBase, mcpBase string, opts ...Option) *Client {
	if apiBase == "" {
		apiBase = DefaultAPIBaseURL
	}
	if mcpBase == "" {
		mcpBase = DefaultMCPBaseURL
	}
	c := &Client{
		apiBase:      strings.TrimRight(apiBase, "/"),
		mcpBase:      strings.TrimRight(mcpBase, "/") + "/",
		httpClient:   &http.Client{},
		toolTimeout:  DefaultToolTimeout,
		checkTimeout: DefaultCheckTimeout,
		maxBody:      MaxBodyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MCPBaseURL returns the normalised MCP base, always ending in "/".
func (c *Client) MCPBaseURL() string { return c.mcpBase }

// GetLocation fetches the location with credential, used to prove the
// credential is live and scoped for locationID.
func (c *Client) GetLocation(ctx context.Context, credential, locationID string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	endpoint := c.apiBase + "/locations/" + url.PathEscape(locationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("ghl get location: build request: %w", err)
	}
	setAuth(req, credential)
	req.Header.Set(headerContentType, mimeJSON)
	return c.do(req, "get location")
}

// CallTool invokes a single MCP tool endpoint. params are sent as the JSON
// body and locationID as a routing header.
func (c *Client) CallTool(ctx context.Context, endpoint, credential, locationID string, params map[string]any) (*Response, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("ghl call tool: encode params: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.toolTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.mcpBase+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ghl call tool: build request: %w", err)
	}
	setAuth(req, credential)
	req.Header.Set(headerContentType, mimeJSON)
	req.Header.Set(HeaderLocationID, locationID)
	return c.do(req, "call tool "+endpoint)
}

// Ping sends GET {mcpBase} and returns whatever the server answered.
func (c *Client) Ping(ctx context.Context, credential, locationID string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.mcpBase, nil)
	if err != nil {
		return nil, fmt.Errorf("ghl ping: build request: %w", err)
	}
	setAuth(req, credential)
	req.Header.Set(HeaderLocationID, locationID)
	return c.do(req, "ping")
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func setAuth(req *http.Request, credential string) {
	req.Header.Set(headerAuthorization, "Bearer "+credential)
}

func (c *Client) do(req *http.Request, op string) (*Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ghl %s: %w", op, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("ghl %s: read body: %w", op, err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("ghl %s: %w: status %d, more than %d bytes", op, ErrResponseTooLarge, resp.StatusCode, c.maxBody)
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body}, nil
}
