// Package llmclient provides a base HTTP client for upstream model APIs with:
// - Request marshaling
// - Standardized error parsing (429, 4xx, 5xx)
// - Optional client-side request throttling
//
// Requests are issued exactly once. Callers that see a rate limit decide what to do
// next; the client never retries on their behalf.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"modelgate/internal/core"
	"modelgate/internal/httpclient"
)

// Config holds configuration for the LLM client
type Config struct {
	// ProviderName identifies the provider for error messages
	ProviderName string

	// BaseURL is the API base URL
	BaseURL string

	// RequestsPerSecond throttles outbound requests from this process. Zero disables throttling.
	RequestsPerSecond float64
}

// DefaultConfig returns default client configuration
func DefaultConfig(providerName, baseURL string) Config {
	return Config{
		ProviderName: providerName,
		BaseURL:      baseURL,
	}
}

// APIKeyHeader carries the Google API credential. Keys never go in the query string,
// so URLs in transport errors and access logs hold no secret.
const APIKeyHeader = "x-goog-api-key"

// HeaderSetter is a function that sets headers on an HTTP request
type HeaderSetter func(req *http.Request)

// Client is a base HTTP client for upstream model APIs
type Client struct {
	httpClient   *http.Client
	config       Config
	headerSetter HeaderSetter
	limiter      *rate.Limiter
}

// New creates a new LLM client with the given configuration
func New(config Config, headerSetter HeaderSetter) *Client {
	return NewWithHTTPClient(httpclient.NewDefaultHTTPClient(), config, headerSetter)
}

// NewWithHTTPClient creates a new LLM client with a custom HTTP client
func NewWithHTTPClient(httpClient *http.Client, config Config, headerSetter HeaderSetter) *Client {
	if httpClient == nil {
		httpClient = httpclient.NewDefaultHTTPClient()
	}
	c := &Client{
		httpClient:   httpClient,
		config:       config,
		headerSetter: headerSetter,
	}
	if config.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}
	return c
}

// Request represents an HTTP request to be made
type Request struct {
	Method   string
	Endpoint string
	Query    url.Values
	Body     interface{} // Will be JSON marshaled if not nil
	Headers  map[string]string
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Body       []byte
}

// DoRaw executes a request once, returning the raw response. Any non-200 status is
// converted to a *core.GatewayError via core.ParseProviderError.
func (c *Client) DoRaw(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, core.NewProviderError(c.config.ProviderName, http.StatusServiceUnavailable, "throttle wait: "+err.Error(), err)
		}
	}

	resp, err := c.doRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, core.ParseProviderError(c.config.ProviderName, resp.StatusCode, resp.Body, nil)
	}

	return resp, nil
}

// doRequest executes a single HTTP request
func (c *Client) doRequest(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewProviderError(c.config.ProviderName, http.StatusBadGateway, "failed to send request: "+err.Error(), err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NewProviderError(c.config.ProviderName, http.StatusBadGateway, "failed to read response: "+err.Error(), err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}

// buildRequest creates an HTTP request from a Request
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := c.config.BaseURL + req.Endpoint
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var bodyReader io.Reader
	if req.Body != nil {
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			return nil, core.NewInvalidRequestError("failed to marshal request", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, bodyReader)
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to create request", err)
	}

	// Set default content type for requests with body
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	// Apply provider-specific headers
	if c.headerSetter != nil {
		c.headerSetter(httpReq)
	}

	// Apply request-specific headers
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	return httpReq, nil
}
