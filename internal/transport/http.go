package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/staffline/staffline-api/internal/endpoint"
)

const DefaultTimeout = 15 * time.Second

var (
	sharedPoolOnce sync.Once
	sharedPool     *http.Transport
)

// SharedPool returns the process-wide connection pool. Every HTTPClient
// build reuses it, so invalidating a client never drops warm connections.
func SharedPool() *http.Transport {
	sharedPoolOnce.Do(func() {
		base, ok := http.DefaultTransport.(*http.Transport)
		if !ok {
			base = &http.Transport{}
		}
		pool := base.Clone()
		if pool.TLSClientConfig == nil {
			pool.TLSClientConfig = &tls.Config{}
		} else {
			pool.TLSClientConfig = pool.TLSClientConfig.Clone()
		}
		pool.TLSClientConfig.MinVersion = tls.VersionTLS12
		pool.DialContext = (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext
		pool.MaxIdleConns = 100
		pool.IdleConnTimeout = 90 * time.Second
		pool.TLSHandshakeTimeout = 5 * time.Second
		sharedPool = pool
	})
	return sharedPool
}

// HTTPOptions configures an HTTPClient at build time.
type HTTPOptions struct {
	BaseURL  string
	Timeout  time.Duration
	Headers  map[string]string
	Pipeline Pipeline
	// RoundTripper overrides the shared pool; tests use it to stub the network.
	RoundTripper http.RoundTripper
}

// HTTPClient is the production transport. Its settings are fixed at
// construction; a new configuration means a new client.
type HTTPClient struct {
	baseURL  string
	headers  http.Header
	pipeline Pipeline
	http     *http.Client
}

var _ Transport = (*HTTPClient)(nil)

// NewHTTPClient creates a production client over the shared pool.
func NewHTTPClient(opts HTTPOptions) *HTTPClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rt := opts.RoundTripper
	if rt == nil {
		rt = SharedPool()
	}
	headers := make(http.Header, len(opts.Headers))
	for k, v := range opts.Headers {
		headers.Set(k, v)
	}
	return &HTTPClient{
		baseURL:  strings.TrimSuffix(opts.BaseURL, "/"),
		headers:  headers,
		pipeline: opts.Pipeline,
		http: &http.Client{
			Timeout:   timeout,
			Transport: rt,
		},
	}
}

// BaseURL returns the URL prefix every path is joined to.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

// Timeout returns the per-request timeout.
func (c *HTTPClient) Timeout() time.Duration { return c.http.Timeout }

// Header returns a copy of the default headers.
func (c *HTTPClient) Header() http.Header { return c.headers.Clone() }

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, path string, params any) (any, error) {
	return c.do(ctx, endpoint.GET, path, params)
}

// Post performs a POST request
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (any, error) {
	return c.do(ctx, endpoint.POST, path, body)
}

// Put performs a PUT request
func (c *HTTPClient) Put(ctx context.Context, path string, body any) (any, error) {
	return c.do(ctx, endpoint.PUT, path, body)
}

// Delete performs a DELETE request
func (c *HTTPClient) Delete(ctx context.Context, path string, params any) (any, error) {
	return c.do(ctx, endpoint.DELETE, path, params)
}

// Patch performs a PATCH request
func (c *HTTPClient) Patch(ctx context.Context, path string, body any) (any, error) {
	return c.do(ctx, endpoint.PATCH, path, body)
}

func (c *HTTPClient) do(ctx context.Context, verb endpoint.Verb, path string, payload any) (any, error) {
	req, err := c.newRequest(ctx, verb, path, payload)
	if err != nil {
		return nil, c.fail(err)
	}
	if err := c.pipeline.onRequest(req); err != nil {
		return nil, c.fail(err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.fail(networkError(ctx, err))
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, c.fail(networkError(ctx, fmt.Errorf("failed to read response: %w", err)))
	}

	out := &Response{
		Request:    req,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Duration:   time.Since(start),
	}
	if out.StatusCode < 200 || out.StatusCode >= 300 {
		return nil, c.fail(httpError(out.StatusCode, decodeBody(body), requestID(req, resp.Header)))
	}
	if err := c.pipeline.onResponse(out); err != nil {
		return nil, c.fail(err)
	}
	return decodeBody(out.Body), nil
}

func (c *HTTPClient) newRequest(ctx context.Context, verb endpoint.Verb, path string, payload any) (*http.Request, error) {
	var bodyReader io.Reader
	u := c.baseURL + path
	if verb.HasBody() {
		if payload != nil {
			data, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal request body: %w", err)
			}
			bodyReader = bytes.NewReader(data)
		}
	} else {
		query, err := encodeQuery(payload)
		if err != nil {
			return nil, err
		}
		u = buildURL(c.baseURL, path, query)
	}

	req, err := http.NewRequestWithContext(ctx, string(verb), u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = c.headers.Clone()
	if bodyReader == nil {
		req.Header.Del("Content-Type")
	}
	return req, nil
}

// fail routes every failure through the error stage.
func (c *HTTPClient) fail(err error) error {
	mapped, _ := c.pipeline.onError(err)
	return mapped
}

// requestID prefers the server's echo and falls back to the id a request
// hook attached.
func requestID(req *http.Request, header http.Header) string {
	if id := requestIDFromHeader(header); id != "" {
		return id
	}
	return req.Header.Get("X-Request-Id")
}
