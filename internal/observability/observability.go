package observability

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "The total number of handled HTTP requests",
	}, []string{"method", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP request handling.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	LifecycleOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lifecycle_operations_total",
		Help: "The total number of lifecycle coordinator operations",
	}, []string{"operation", "outcome"}) // outcome: ok, error
)

// NewLogger creates a new structured logger.
func NewLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

// MetricsHandler exposes the Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
