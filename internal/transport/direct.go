package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/staffline/staffline-api/internal/endpoint"
)

// DirectClient talks to the backend with the bare default HTTP client. It
// has no interceptors: headers, including Authorization, are fixed when the
// client is built.
type DirectClient struct {
	baseURL string
	headers map[string]string
	doer    *http.Client
}

var _ Transport = (*DirectClient)(nil)

// NewDirectClient creates a lightweight client.
func NewDirectClient(baseURL string, headers map[string]string) *DirectClient {
	h := make(map[string]string, len(headers))
	for k, v := range headers {
		h[k] = v
	}
	return &DirectClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		headers: h,
		doer:    http.DefaultClient,
	}
}

func (c *DirectClient) Get(ctx context.Context, path string, params any) (any, error) {
	return c.do(ctx, endpoint.GET, path, params)
}

func (c *DirectClient) Post(ctx context.Context, path string, body any) (any, error) {
	return c.do(ctx, endpoint.POST, path, body)
}

func (c *DirectClient) Put(ctx context.Context, path string, body any) (any, error) {
	return c.do(ctx, endpoint.PUT, path, body)
}

func (c *DirectClient) Delete(ctx context.Context, path string, params any) (any, error) {
	return c.do(ctx, endpoint.DELETE, path, params)
}

func (c *DirectClient) Patch(ctx context.Context, path string, body any) (any, error) {
	return c.do(ctx, endpoint.PATCH, path, body)
}

func (c *DirectClient) do(ctx context.Context, verb endpoint.Verb, path string, payload any) (any, error) {
	u := c.baseURL + path
	var body io.Reader
	if verb.HasBody() {
		if payload != nil {
			data, err := json.Marshal(payload)
			if err != nil {
				return nil, &Error{Message: fmt.Sprintf("failed to marshal request body: %v", err), Code: ErrUnknown, Err: err}
			}
			body = bytes.NewReader(data)
		}
	} else {
		query, err := encodeQuery(payload)
		if err != nil {
			return nil, &Error{Message: err.Error(), Code: ErrUnknown, Err: err}
		}
		u = buildURL(c.baseURL, path, query)
	}

	req, err := http.NewRequestWithContext(ctx, string(verb), u, body)
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("failed to create request: %v", err), Code: ErrUnknown, Err: err}
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if body == nil {
		req.Header.Del("Content-Type")
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, networkError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(ctx, fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpError(resp.StatusCode, decodeBody(respBody), requestIDFromHeader(resp.Header))
	}
	return decodeBody(respBody), nil
}
