// Package metrics records API call outcomes on the client side and served
// requests on the mock backend, with Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Calls holds the API call collectors.
type Calls struct {
	// Total tracks calls by verb, outcome and error code ("" on success)
	Total *prometheus.CounterVec

	// Duration tracks call latency in seconds by verb
	Duration *prometheus.HistogramVec
}

// NewCalls registers the call collectors on reg. A nil reg uses a fresh
// private registry so several instances can coexist in one process.
func NewCalls(reg prometheus.Registerer) *Calls {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Calls{
		Total: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "staffline_api_calls_total",
				Help: "Total API calls by verb, outcome and error code",
			},
			[]string{"verb", "outcome", "code"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "staffline_api_call_duration_seconds",
				Help:    "API call duration in seconds",
				Buckets: []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 15},
			},
			[]string{"verb"},
		),
	}
}

// Observe records one finished call.
func (c *Calls) Observe(verb, outcome, code string, d time.Duration) {
	if c == nil {
		return
	}
	c.Total.WithLabelValues(verb, outcome, code).Inc()
	c.Duration.WithLabelValues(verb).Observe(d.Seconds())
}

// Requests holds the server-side request collectors of the mock backend.
type Requests struct {
	Total    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewRequests registers the request collectors on reg.
func NewRequests(reg prometheus.Registerer) *Requests {
	factory := promauto.With(reg)
	return &Requests{
		Total: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "staffline_mock_requests_total",
				Help: "Requests served by the mock API by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "staffline_mock_request_duration_seconds",
				Help:    "Mock API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

// Observe records one served request.
func (r *Requests) Observe(route, method string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.Total.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.Duration.WithLabelValues(route).Observe(d.Seconds())
}

// Handler exposes g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// WriteFile writes g to path in the text format, for batch jobs scraped via
// a textfile collector.
func WriteFile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
