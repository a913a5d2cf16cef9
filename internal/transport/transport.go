// Package transport performs the network half of an API call. Three
// strategies implement Transport: the pooled production HTTPClient, the
// lightweight DirectClient and the programmable Fake used by tests.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"
)

// Transport issues one request per call and returns the decoded response
// body. Failures are always reported as *Error.
//
// For Get and Delete the payload is serialized as query parameters; for Post,
// Put and Patch it is sent as a JSON body.
type Transport interface {
	Get(ctx context.Context, path string, params any) (any, error)
	Post(ctx context.Context, path string, body any) (any, error)
	Put(ctx context.Context, path string, body any) (any, error)
	Delete(ctx context.Context, path string, params any) (any, error)
	Patch(ctx context.Context, path string, body any) (any, error)
}

// Kind selects which Transport implementation a configuration builds.
type Kind int

const (
	// KindHTTP is the production client with the interceptor pipeline.
	KindHTTP Kind = iota
	// KindDirect is the lightweight client without interceptors.
	KindDirect
	// KindFake is the programmable test double.
	KindFake
)

func (k Kind) String() string {
	switch k {
	case KindHTTP:
		return "http"
	case KindDirect:
		return "direct"
	case KindFake:
		return "fake"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind converts a configuration string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "http":
		return KindHTTP, nil
	case "direct":
		return KindDirect, nil
	case "fake":
		return KindFake, nil
	default:
		return KindHTTP, fmt.Errorf("invalid transport %q (use 'http', 'direct', or 'fake')", s)
	}
}

// Response is the buffered result of one HTTP exchange, as seen by
// response hooks.
type Response struct {
	Request    *http.Request
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// decodeBody returns the JSON value in b, the raw text when b is not JSON,
// or nil for an empty body.
func decodeBody(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return string(b)
	}
	return v
}

// encodeQuery flattens a payload into query parameters. Maps and structs are
// round-tripped through JSON so struct tags apply; nested values are
// JSON-encoded.
func encodeQuery(payload any) (url.Values, error) {
	values := url.Values{}
	if payload == nil {
		return values, nil
	}
	if v, ok := payload.(url.Values); ok {
		return v, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query parameters: %w", err)
	}
	// Numbers stay json.Number so ids and epoch timestamps keep every digit.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("query parameters must be an object: %w", err)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := fields[k].(type) {
		case nil:
		case string:
			values.Set(k, v)
		case []any:
			for _, item := range v {
				values.Add(k, scalarString(item))
			}
		default:
			values.Set(k, scalarString(v))
		}
	}
	return values, nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return fmt.Sprint(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// buildURL joins base and path and appends the encoded query.
func buildURL(base, path string, query url.Values) string {
	u := base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func requestIDFromHeader(header http.Header) string {
	if header == nil {
		return ""
	}
	return header.Get("X-Request-Id")
}
