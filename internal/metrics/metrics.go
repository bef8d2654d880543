package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors of the refresh pipeline. All methods are safe
// on a nil receiver so components can run without instrumentation.
type Metrics struct {
	HTTPRequestsTotal *prometheus.CounterVec

	FetchTotal    *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
	CacheLookups  *prometheus.CounterVec
	MessagesTotal *prometheus.CounterVec
	RenderTotal   prometheus.Counter
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "method", "status_code"},
		),

		FetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "placeinfo_fetch_total",
				Help: "Refresh cycles by domain and outcome",
			},
			[]string{"domain", "result"},
		),

		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "placeinfo_fetch_duration_seconds",
				Help:    "Duration of refresh cycles in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"domain"},
		),

		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "placeinfo_currency_cache_lookups_total",
				Help: "Currency cache lookups by result (hit, miss, stale, corrupt)",
			},
			[]string{"result"},
		),

		MessagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "placeinfo_messages_total",
				Help: "Messages handled by the dispatcher by kind and outcome",
			},
			[]string{"kind", "result"},
		),

		RenderTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "placeinfo_render_total",
				Help: "Render passes",
			},
		),
	}
}

func (m *Metrics) ObserveFetch(domain, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchTotal.WithLabelValues(domain, result).Inc()
	m.FetchDuration.WithLabelValues(domain).Observe(d.Seconds())
}

func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) Message(kind, result string) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) Rendered() {
	if m == nil {
		return
	}
	m.RenderTotal.Inc()
}

func (m *Metrics) HTTPRequest(path, method, status string) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(path, method, status).Inc()
}
