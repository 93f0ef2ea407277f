package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shopapi"

type Metrics struct {
	Requests    *prometheus.CounterVec
	LatencyMS   *prometheus.HistogramVec
	StoreFaults *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "method", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route"})
	faults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_faults_total",
		Help:      "Store errors that were not a plain not-found.",
	}, []string{"component", "operation"})

	reg.MustRegister(requests, latency, faults)
	return &Metrics{Requests: requests, LatencyMS: latency, StoreFaults: faults}
}

func (m *Metrics) StoreFault(component string, operation string) {
	m.StoreFaults.WithLabelValues(component, operation).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
