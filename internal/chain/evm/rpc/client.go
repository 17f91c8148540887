// Package rpc provides an EIP-1193 provider backed by a JSON-RPC 2.0 endpoint.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/mrz1836/linkbridge/internal/chain"
	"github.com/mrz1836/linkbridge/internal/provider"
	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

// defaultTimeout bounds a single HTTP round trip.
const defaultTimeout = 30 * time.Second

// maxResponseSize caps the response body read from the endpoint.
const maxResponseSize = 10 << 20

// ErrRPCResponse indicates the endpoint answered with something that is not JSON-RPC.
var ErrRPCResponse = &linkerr.LinkError{
	Code:     "RPC_INVALID_RESPONSE",
	Message:  "invalid RPC response",
	ExitCode: linkerr.ExitNetwork,
}

// Client is an EIP-1193 provider that forwards requests to a JSON-RPC endpoint.
type Client struct {
	url        string
	httpClient *http.Client
	headers    map[string]string
	flags      provider.Flags
	idCounter  atomic.Uint64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithHeader adds a header to every request, such as an API key.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers[key] = value }
}

// WithFlags sets the brand flags the provider announces.
func WithFlags(f provider.Flags) Option {
	return func(c *Client) { c.flags = f }
}

// NewClient creates a provider for the endpoint URL.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: defaultTimeout},
		headers:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Flags implements provider.Flagged.
func (c *Client) Flags() provider.Flags {
	return c.flags
}

// URL returns the endpoint the client talks to.
func (c *Client) URL() string {
	return c.url
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *provider.Error `json:"error,omitempty"`
}

// Request performs a JSON-RPC call. Errors returned by the endpoint keep
// their JSON-RPC code as a *provider.Error.
func (c *Client) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}

	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.idCounter.Add(1),
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, linkerr.WithDetails(linkerr.WithCause(linkerr.ErrNetworkError, err), map[string]string{"method": method})
	}
	// Body.Close error is intentionally ignored as it only fails if the
	// connection is already broken, and there's no recovery action.
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode == http.StatusTooManyRequests {
		return nil, linkerr.WithDetails(chain.ErrRateLimited, map[string]string{
			"method":     method,
			"retryAfter": chain.ParseRetryAfter(httpResp.Header.Get("Retry-After")).String(),
		})
	}

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, linkerr.WithCause(linkerr.ErrNetworkError, err)
	}

	var resp response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		if httpResp.StatusCode >= http.StatusInternalServerError {
			return nil, linkerr.WithDetails(linkerr.ErrNetworkError, map[string]string{
				"method": method,
				"status": httpResp.Status,
			})
		}
		return nil, linkerr.WithDetails(linkerr.WithCause(ErrRPCResponse, err), map[string]string{
			"method": method,
			"status": httpResp.Status,
		})
	}

	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
