package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors the service updates
type Metrics struct {
	gatherer prometheus.Gatherer

	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Redirects       *prometheus.CounterVec
	Created         *prometheus.CounterVec
	CreateRetries   prometheus.Counter
	ClicksRecorded  prometheus.Counter
	ClicksDropped   *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
}

// New registers every collector on reg. Passing a fresh registry keeps tests isolated.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, []string{"method", "path", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		Redirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "redirects_total",
			Help: "Resolve outcomes",
		}, []string{"outcome"}),
		Created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "short_urls_created_total",
			Help: "Created short URLs by code origin",
		}, []string{"origin"}),
		CreateRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "short_url_create_retries_total",
			Help: "Regenerations after a duplicate code at write time",
		}),
		ClicksRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "click_events_recorded_total",
			Help: "Click events persisted",
		}),
		ClicksDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "click_events_dropped_total",
			Help: "Click events lost to a full queue or a failing store",
		}, []string{"reason"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Mapping cache lookups by result",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.Requests,
		m.RequestDuration,
		m.Redirects,
		m.Created,
		m.CreateRetries,
		m.ClicksRecorded,
		m.ClicksDropped,
		m.CacheLookups,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
