package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalls_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCalls(reg)

	c.Observe("GET", OutcomeSuccess, "", 10*time.Millisecond)
	c.Observe("GET", OutcomeSuccess, "", 20*time.Millisecond)
	c.Observe("POST", OutcomeError, "unauthorized", time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.Total.WithLabelValues("GET", OutcomeSuccess, "")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.Total.WithLabelValues("POST", OutcomeError, "unauthorized")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.Duration))
}

func TestCalls_NilSafe(t *testing.T) {
	var c *Calls
	assert.NotPanics(t, func() { c.Observe("GET", OutcomeSuccess, "", time.Second) })
}

func TestNewCalls_PrivateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCalls(nil)
		NewCalls(nil)
	})
}

func TestRequests_ObserveAndExpose(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRequests(reg)
	r.Observe("/api/users/me", "GET", 200, 3*time.Millisecond)
	r.Observe("/api/users/me", "GET", 401, time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(r.Total.WithLabelValues("/api/users/me", "GET", "401")))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `staffline_mock_requests_total{method="GET",route="/api/users/me",status="200"} 1`)
}

func TestWriteFile(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCalls(reg).Observe("POST", OutcomeError, "timeout", time.Second)

	path := filepath.Join(t.TempDir(), "sl.prom")
	require.NoError(t, WriteFile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `staffline_api_calls_total{code="timeout",outcome="error",verb="POST"} 1`)
}
