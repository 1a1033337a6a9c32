// Package http implements the low-level transport for the appliance API:
// basic-authenticated JSON requests with transient-failure retries on top of
// hashicorp/go-retryablehttp.
package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/appliance-io/mgmtapi/internal/constants"
	"github.com/appliance-io/mgmtapi/pkg/mgmtapi"
	"github.com/hashicorp/go-retryablehttp"
)

// Request represents an API request.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	Headers map[string]string

	// NoCache bypasses the response cache for this request. Explicit
	// reloads set it so a stale snapshot is never served back.
	NoCache bool
}

// Response represents an API response. The transport does not interpret the
// status code; error envelopes and decode failures are the caller's concern.
type Response struct {
	StatusCode int
	Headers    nethttp.Header
	Body       []byte
}

// Client is the low-level HTTP client.
type Client struct {
	baseURL      string
	retryClient  *retryablehttp.Client
	username     string
	password     string
	useBasicAuth bool
	userAgent    string
	logger       mgmtapi.Logger
	debug        bool
	cache        mgmtapi.Cache
	cacheTTL     time.Duration
	interceptors *mgmtapi.InterceptorChain
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger used for debug output.
func WithLogger(logger mgmtapi.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request/response logging when a logger is set.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithBasicAuth sends the credential pair on every request.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
		c.useBasicAuth = true
	}
}

// WithRetryConfig tunes transient-failure retries.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.retryClient.RetryMax = retryMax
		c.retryClient.RetryWaitMin = waitMin
		c.retryClient.RetryWaitMax = waitMax
	}
}

// WithTimeout sets the per-request transport timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.retryClient.HTTPClient.Timeout = timeout
	}
}

// WithTLSVerification toggles certificate verification. Appliances commonly
// ship self-signed certificates, so verification is off unless enabled.
func WithTLSVerification(verify bool) Option {
	return func(c *Client) {
		if verify {
			c.retryClient.HTTPClient.Transport = nethttp.DefaultTransport

			return
		}

		c.retryClient.HTTPClient.Transport = &nethttp.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402 -- self-signed appliance certificates
		}
	}
}

// WithCache caches successful GET responses for the given TTL.
func WithCache(cache mgmtapi.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// WithInterceptors installs a request/response interceptor chain.
func WithInterceptors(chain *mgmtapi.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// NewClient creates a new low-level client. Retries are disabled until
// WithRetryConfig is applied; retried failures still surface their final
// response body so envelope processing sees it.
func NewClient(baseURL string, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.Logger = nil
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout

	client := &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		retryClient: retryClient,
		userAgent:   "mgmtapi-client/1.0",
	}

	// Verification off by default; see WithTLSVerification.
	WithTLSVerification(false)(client)

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Do executes a request and returns the raw response.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	fullURL, err := c.resolveURL(req)
	if err != nil {
		return nil, err
	}

	bodyBytes, err := marshalBody(req.Body)
	if err != nil {
		return nil, err
	}

	chainReq := &mgmtapi.Request{
		Method:  req.Method,
		URL:     fullURL,
		Headers: make(nethttp.Header),
		Body:    bodyBytes,
	}

	if c.interceptors != nil {
		err = c.interceptors.ExecuteRequestInterceptors(ctx, chainReq)
		if err != nil {
			return nil, err
		}
	}

	cacheKey := req.Method + " " + fullURL

	if cached := c.cachedResponse(ctx, req, cacheKey); cached != nil {
		return cached, nil
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": req.Method,
			"url":    fullURL,
		})
	}

	resp, err := c.send(ctx, req, fullURL, chainReq, bodyBytes)

	if c.interceptors != nil {
		chainResp := &mgmtapi.Response{Error: err}
		if resp != nil {
			chainResp.StatusCode = resp.StatusCode
			chainResp.Headers = resp.Headers
			chainResp.Body = resp.Body
		}

		chainErr := c.interceptors.ExecuteResponseInterceptors(ctx, chainReq, chainResp)
		if chainErr != nil && err == nil {
			err = chainErr
		}
	}

	if err != nil {
		return resp, err
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"method":      req.Method,
			"url":         fullURL,
			"status_code": resp.StatusCode,
		})
	}

	c.storeResponse(ctx, req, cacheKey, resp)

	return resp, nil
}

func (c *Client) send(ctx context.Context, req *Request, fullURL string, chainReq *mgmtapi.Request, bodyBytes []byte) (*Response, error) {
	var rawBody interface{}
	if bodyBytes != nil {
		rawBody = bodyBytes
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, rawBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")

	if bodyBytes != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	for key, values := range chainReq.Headers {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	if c.useBasicAuth {
		httpReq.SetBasicAuth(c.username, c.password)
	}

	httpResp, err := c.retryClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	defer func() {
		_ = httpResp.Body.Close()
	}()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}, nil
}

func (c *Client) resolveURL(req *Request) (string, error) {
	target := req.Path
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		if !strings.HasPrefix(target, "/") {
			target = "/" + target
		}

		target = c.baseURL + target
	}

	parsed, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parsing request URL: %w", err)
	}

	if len(req.Query) > 0 {
		merged := parsed.Query()
		for key, values := range req.Query {
			for _, value := range values {
				merged.Add(key, value)
			}
		}

		parsed.RawQuery = merged.Encode()
	}

	return parsed.String(), nil
}

func marshalBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}

	if raw, ok := body.([]byte); ok {
		return raw, nil
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	return data, nil
}

func (c *Client) cachedResponse(ctx context.Context, req *Request, key string) *Response {
	if c.cache == nil || req.NoCache || req.Method != nethttp.MethodGet {
		return nil
	}

	entry, err := c.cache.Get(ctx, key)
	if err != nil {
		return nil
	}

	return &Response{
		StatusCode: entry.StatusCode,
		Headers:    make(nethttp.Header),
		Body:       bytes.Clone(entry.Body),
	}
}

func (c *Client) storeResponse(ctx context.Context, req *Request, key string, resp *Response) {
	if c.cache == nil || req.NoCache || req.Method != nethttp.MethodGet {
		return
	}

	if resp.StatusCode != nethttp.StatusOK {
		return
	}

	_ = c.cache.Set(ctx, key, &mgmtapi.CacheEntry{
		StatusCode: resp.StatusCode,
		Body:       bytes.Clone(resp.Body),
		StoredAt:   time.Now(),
		TTL:        c.cacheTTL,
	})
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: nethttp.MethodGet, Path: path, Query: query})
}

// GetNoCache performs a GET request that bypasses the response cache.
func (c *Client) GetNoCache(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: nethttp.MethodGet, Path: path, Query: query, NoCache: true})
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: nethttp.MethodPost, Path: path, Body: body})
}

// Delete performs a DELETE request. The appliance accepts JSON bodies on
// DELETE for bulk action dispatch.
func (c *Client) Delete(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: nethttp.MethodDelete, Path: path, Body: body})
}
