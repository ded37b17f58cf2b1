package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors exported on /metrics.
type Metrics struct {
	Requests     *prometheus.CounterVec
	Duration     *prometheus.HistogramVec
	LoadFailures prometheus.Counter
	Selections   *prometheus.CounterVec
	Tiles        *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them, together with a
// gauge reporting sessions(), on reg.
func NewMetrics(reg prometheus.Registerer, sessions func() int) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cngmap",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cngmap",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		LoadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cngmap",
			Name:      "dataset_load_failures_total",
			Help:      "Sessions that could not be created because the dataset failed to load.",
		}),
		Selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cngmap",
			Name:      "selections_total",
			Help:      "Filter selection changes by attribute and whether any station matched.",
		}, []string{"attribute", "result"}),
		Tiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cngmap",
			Name:      "tiles_served_total",
			Help:      "Proxied tiles by basemap and outcome.",
		}, []string{"basemap", "result"}),
	}

	reg.MustRegister(
		m.Requests,
		m.Duration,
		m.LoadFailures,
		m.Selections,
		m.Tiles,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "cngmap",
			Name:      "sessions",
			Help:      "Live dashboard sessions.",
		}, func() float64 { return float64(sessions()) }),
	)

	return m
}
