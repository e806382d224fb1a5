// Package metrics defines Prometheus metrics for conversions and the HTTP
// tool server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const MetricsPath = "/metrics"

// ResultOK labels a successful conversion.
const ResultOK = "ok"

var (
	conversionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unitconv_conversions_total",
			Help: "Total number of conversion tool calls by category and result",
		},
		[]string{"category", "result"},
	)
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unitconv_http_requests_total",
			Help: "Total number of HTTP requests to the tool server",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "unitconv_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds for the tool server",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(conversionsTotal)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
}

// RecordConversion counts one conversion. result is ResultOK or an error code.
func RecordConversion(category, result string) {
	if category == "" {
		category = "unknown"
	}
	conversionsTotal.WithLabelValues(category, result).Inc()
}

// RecordRequest counts one finished HTTP request.
func RecordRequest(method, path, status string, durationSeconds float64) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(durationSeconds)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
