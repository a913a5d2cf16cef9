package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_Get(t *testing.T) {
	tests := []struct {
		name         string
		statusCode   int
		responseBody string
		expectError  bool
	}{
		{
			name:         "successful GET",
			statusCode:   http.StatusOK,
			responseBody: `{"success": true, "data": {"id": 1}}`,
		},
		{
			name:         "not found",
			statusCode:   http.StatusNotFound,
			responseBody: `{"error": "not found"}`,
			expectError:  true,
		},
		{
			name:         "server error",
			statusCode:   http.StatusInternalServerError,
			responseBody: `{"message": "internal error"}`,
			expectError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/employees", r.URL.Path)
				assert.Equal(t, "2", r.URL.Query().Get("page"))
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.responseBody))
			}))
			defer server.Close()

			client := NewHTTPClient(HTTPOptions{BaseURL: server.URL})
			res, err := client.Get(context.Background(), "/employees", map[string]any{"page": 2})

			if tt.expectError {
				require.Error(t, err)
				e, ok := AsError(err)
				require.True(t, ok, "expected *Error, got %T", err)
				assert.Equal(t, tt.statusCode, e.Status)
				assert.NotNil(t, e.Data)
				return
			}
			require.NoError(t, err)
			m, ok := res.(map[string]any)
			require.True(t, ok)
			assert.Equal(t, true, m["success"])
		})
	}
}

func TestHTTPClient_PostSendsJSONAndHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "mobile", r.Header.Get("X-Client"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@b.com", body["email"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success": true, "token": "t"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(HTTPOptions{
		BaseURL: server.URL + "/",
		Headers: map[string]string{"Content-Type": "application/json", "X-Client": "mobile"},
	})
	res, err := client.Post(context.Background(), "/auth/login", map[string]string{"email": "a@b.com"})
	require.NoError(t, err)
	assert.Equal(t, "t", res.(map[string]any)["token"])
}

func TestHTTPClient_DeleteOmitsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Empty(t, r.Header.Get("Content-Type"))
		assert.Equal(t, int64(0), r.ContentLength)
		assert.Equal(t, "true", r.URL.Query().Get("force"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewHTTPClient(HTTPOptions{
		BaseURL: server.URL,
		Headers: map[string]string{"Content-Type": "application/json"},
	})
	res, err := client.Delete(context.Background(), "/shifts/3", map[string]any{"force": true})
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestHTTPClient_PipelineOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "first,second", r.Header.Get("X-Order"))
		_, _ = w.Write([]byte(`{"n": 1}`))
	}))
	defer server.Close()

	var order []string
	client := NewHTTPClient(HTTPOptions{
		BaseURL: server.URL,
		Pipeline: Pipeline{
			Request: []RequestHook{
				func(req *http.Request) error {
					req.Header.Set("X-Order", "first")
					order = append(order, "req1")
					return nil
				},
				func(req *http.Request) error {
					req.Header.Set("X-Order", req.Header.Get("X-Order")+",second")
					order = append(order, "req2")
					return nil
				},
			},
			Response: []ResponseHook{
				func(resp *Response) error {
					order = append(order, "resp1")
					resp.Body = []byte(`{"n": 2}`)
					return nil
				},
			},
		},
	})

	res, err := client.Get(context.Background(), "/x", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(2), res.(map[string]any)["n"])
	assert.Equal(t, []string{"req1", "req2", "resp1"}, order)
}

func TestHTTPClient_ErrorStage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"success": false, "error": "invalid date"}`))
	}))
	defer server.Close()

	var observed error
	var failures []HookFailure
	client := NewHTTPClient(HTTPOptions{
		BaseURL: server.URL,
		Pipeline: Pipeline{
			Error: []ErrorHook{
				func(err error) error { return errors.New("hook broke") },
				func(err error) error { panic("hook panicked") },
				func(err error) error { observed = err; return nil },
			},
			Mapper:        NormalizeError,
			OnHookFailure: func(f HookFailure) { failures = append(failures, f) },
		},
	})

	_, err := client.Put(context.Background(), "/leave/1", map[string]any{"from": "x"})
	require.Error(t, err)
	require.NotNil(t, observed, "later hooks still run after a failing hook")

	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, e.Status)
	assert.Equal(t, ErrValidation, e.Code)
	assert.Equal(t, "invalid date", e.Message)

	require.Len(t, failures, 2)
	assert.Equal(t, 0, failures[0].Index)
	assert.Equal(t, 1, failures[1].Index)
	assert.Contains(t, failures[1].Error(), "panic")
}

func TestHTTPClient_FailingMapperSurfacesAsIs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	sentinel := errors.New("mapper exploded")
	client := NewHTTPClient(HTTPOptions{
		BaseURL:  server.URL,
		Pipeline: Pipeline{Mapper: func(error) error { return sentinel }},
	})
	_, err := client.Get(context.Background(), "/", nil)
	assert.Same(t, sentinel, err)
}

func TestHTTPClient_NilMapperKeepsOriginalError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient(HTTPOptions{
		BaseURL:  server.URL,
		Pipeline: Pipeline{Mapper: func(error) error { return nil }},
	})
	res, err := client.Get(context.Background(), "/", nil)
	require.Error(t, err)
	assert.Nil(t, res)
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, e.Status)
}

func TestHTTPClient_QueryKeepsLargeNumbers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1234567", r.URL.Query().Get("employeeId"))
		assert.Equal(t, "1760000000000", r.URL.Query().Get("from"))
		assert.Equal(t, "9007199254740993", r.URL.Query().Get("cursor"))
		assert.Equal(t, "0.5", r.URL.Query().Get("ratio"))
		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	defer server.Close()

	client := NewHTTPClient(HTTPOptions{BaseURL: server.URL})
	_, err := client.Get(context.Background(), "/attendance", map[string]any{
		"employeeId": 1234567,
		"from":       int64(1760000000000),
		"cursor":     uint64(9007199254740993),
		"ratio":      0.5,
	})
	require.NoError(t, err)
}

func TestHTTPClient_RequestHookAborts(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewHTTPClient(HTTPOptions{
		BaseURL: server.URL,
		Pipeline: Pipeline{
			Request: []RequestHook{func(*http.Request) error { return errors.New("no session") }},
			Mapper:  NormalizeError,
		},
	})
	_, err := client.Get(context.Background(), "/", nil)
	require.Error(t, err)
	assert.False(t, called)
	assert.Contains(t, err.Error(), "no session")
}

func TestHTTPClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewHTTPClient(HTTPOptions{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	_, err := client.Get(context.Background(), "/slow", nil)
	require.Error(t, err)
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, 0, e.Status)
	assert.Equal(t, ErrTimeout, e.Code)
}

func TestHTTPClient_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewHTTPClient(HTTPOptions{BaseURL: url})
	_, err := client.Get(context.Background(), "/", nil)
	require.Error(t, err)
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, 0, e.Status)
	assert.Equal(t, ErrNetwork, e.Code)
}

func TestHTTPClient_NonJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	}))
	defer server.Close()

	res, err := NewHTTPClient(HTTPOptions{BaseURL: server.URL}).Get(context.Background(), "/ping", nil)
	require.NoError(t, err)
	assert.Equal(t, "pong", res)
}

func TestSharedPool_Reused(t *testing.T) {
	a := NewHTTPClient(HTTPOptions{BaseURL: "http://a"})
	b := NewHTTPClient(HTTPOptions{BaseURL: "http://b"})
	assert.Same(t, a.http.Transport, b.http.Transport)
	assert.Equal(t, DefaultTimeout, a.Timeout())
	assert.True(t, strings.HasPrefix(b.BaseURL(), "http://b"))
}
