// Package metrics exposes Prometheus collectors for the dashboard.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ridesdash"

type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	RateLimitedTotal     prometheus.Counter
	SuspiciousTotal      *prometheus.CounterVec

	DatasetLoadsTotal   *prometheus.CounterVec
	DatasetLoadDuration *prometheus.HistogramVec
	DatasetRows         *prometheus.GaugeVec

	ChartRendersTotal *prometheus.CounterVec
	ChartCacheTotal   *prometheus.CounterVec
	ChartCacheEntries prometheus.Gauge

	MessagesPublished *prometheus.CounterVec
	MessagesConsumed  *prometheus.CounterVec
	LastImport        prometheus.Gauge
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		HTTPRequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		}),
		RateLimitedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter",
		}),
		SuspiciousTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_suspicious_requests_total",
				Help:      "Requests matching a known probing pattern",
			},
			[]string{"reason"},
		),

		DatasetLoadsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dataset_loads_total",
				Help:      "Total number of dataset loads",
			},
			[]string{"backend", "status"},
		),
		DatasetLoadDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dataset_load_duration_seconds",
				Help:      "Dataset load duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
		DatasetRows: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dataset_rows",
				Help:      "Rows per collection in the last successful load",
			},
			[]string{"collection"},
		),

		ChartRendersTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chart_renders_total",
				Help:      "Total number of PNG chart renders",
			},
			[]string{"view", "status"},
		),
		ChartCacheTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chart_cache_requests_total",
				Help:      "PNG chart cache lookups by result",
			},
			[]string{"result"},
		),
		ChartCacheEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chart_cache_entries",
			Help:      "Number of rendered charts held in memory",
		}),

		MessagesPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rabbitmq_messages_published_total",
				Help:      "Total number of messages published to RabbitMQ",
			},
			[]string{"queue", "status"},
		),
		MessagesConsumed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rabbitmq_messages_consumed_total",
				Help:      "Total number of messages consumed from RabbitMQ",
			},
			[]string{"queue", "status"},
		),
		LastImport: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_import_timestamp_seconds",
			Help:      "Unix time of the last dataset import seen by this process",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTP records one finished HTTP request.
func (m *Metrics) ObserveHTTP(method, route string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// InFlight tracks a request being served; call the returned func when done.
func (m *Metrics) InFlight() func() {
	if m == nil {
		return func() {}
	}
	m.HTTPRequestsInFlight.Inc()
	return m.HTTPRequestsInFlight.Dec
}

// ObserveRateLimited counts a rejected request.
func (m *Metrics) ObserveRateLimited() {
	if m == nil {
		return
	}
	m.RateLimitedTotal.Inc()
}

// ObserveSuspicious counts a request flagged by the security detector.
func (m *Metrics) ObserveSuspicious(reason string) {
	if m == nil {
		return
	}
	m.SuspiciousTotal.WithLabelValues(reason).Inc()
}

// ObserveLoad records a dataset load and, on success, the collection sizes.
func (m *Metrics) ObserveLoad(backend string, err error, duration time.Duration, locations, categories, rides int) {
	if m == nil {
		return
	}
	m.DatasetLoadsTotal.WithLabelValues(backend, status(err)).Inc()
	m.DatasetLoadDuration.WithLabelValues(backend).Observe(duration.Seconds())
	if err != nil {
		return
	}
	m.DatasetRows.WithLabelValues("locations").Set(float64(locations))
	m.DatasetRows.WithLabelValues("categories").Set(float64(categories))
	m.DatasetRows.WithLabelValues("rides").Set(float64(rides))
}

// ObserveRender records a chart render outcome ("success", "no_data" or "error").
func (m *Metrics) ObserveRender(view, outcome string) {
	if m == nil {
		return
	}
	m.ChartRendersTotal.WithLabelValues(view, outcome).Inc()
}

// ObserveCache records a chart cache lookup and the resulting cache size.
func (m *Metrics) ObserveCache(hit bool, entries int) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ChartCacheTotal.WithLabelValues(result).Inc()
	m.ChartCacheEntries.Set(float64(entries))
}

// ObservePublish records a RabbitMQ publish.
func (m *Metrics) ObservePublish(queue string, err error) {
	if m == nil {
		return
	}
	m.MessagesPublished.WithLabelValues(queue, status(err)).Inc()
}

// ObserveConsume records a consumed RabbitMQ message.
func (m *Metrics) ObserveConsume(queue string, err error) {
	if m == nil {
		return
	}
	m.MessagesConsumed.WithLabelValues(queue, status(err)).Inc()
}

// ObserveImport records the time of the latest import.
func (m *Metrics) ObserveImport(at time.Time) {
	if m == nil {
		return
	}
	m.LastImport.Set(float64(at.Unix()))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
