package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"picpic.bench/internal/core/domain"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Benchmark metrics
	measuredSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bench_measured_seconds",
			Help: "Wall-clock seconds of the latest pass per dataset, executor and worker count",
		},
		[]string{"dataset", "executor", "workers"},
	)

	measurementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bench_measurement_duration_seconds",
			Help:    "Distribution of measured pass durations",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"executor"},
	)

	parallelFraction = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bench_parallel_fraction",
			Help: "Amdahl parallel fraction fitted per dataset and executor",
		},
		[]string{"dataset", "executor"},
	)

	itemsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bench_items_failed_total",
			Help: "Items skipped because they could not be transformed",
		},
		[]string{"dataset", "executor"},
	)
)

// MetricsMiddleware records HTTP request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip metrics for WebSocket upgrade requests
		if r.Header.Get("Upgrade") == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()

		// Wrap ResponseWriter to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			path = rctx.RoutePattern()
		}
		if path == "" {
			path = r.URL.Path
		}

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// MetricsHandler returns the Prometheus metrics handler
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// PromRecorder exports benchmark results to Prometheus.
type PromRecorder struct{}

func (PromRecorder) ObserveMeasurement(dataset string, res domain.ExecutionResult) {
	kind := string(res.Kind)
	measuredSeconds.WithLabelValues(dataset, kind, strconv.Itoa(res.Workers)).Set(res.ElapsedSeconds)
	measurementDuration.WithLabelValues(kind).Observe(res.ElapsedSeconds)
	if res.Failed > 0 {
		itemsFailed.WithLabelValues(dataset, kind).Add(float64(res.Failed))
	}
}

func (PromRecorder) SetParallelFraction(dataset string, kind domain.ExecutorKind, p float64) {
	parallelFraction.WithLabelValues(dataset, string(kind)).Set(p)
}
