package http

import (
	"strconv"
	"time"

	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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

	// Ingest metrics
	ingestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statusboard_ingests_total",
			Help: "Status ingests by result",
		},
		[]string{"result"},
	)

	lastReceived = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "statusboard_last_received_timestamp_seconds",
			Help: "Unix time of the most recently accepted snapshot",
		},
	)

	liveClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "statusboard_live_clients",
			Help: "Number of connected live-update websocket clients",
		},
	)
)

// MetricsMiddleware records HTTP request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Hijacked websocket connections have no meaningful status or duration.
		if r.Header.Get("Upgrade") == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = "unmatched"
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

// RecordIngest counts an ingest attempt by outcome.
func RecordIngest(result string) {
	ingestsTotal.WithLabelValues(result).Inc()
}

// SetLastReceived exports the receipt time of the latest snapshot.
func SetLastReceived(t time.Time) {
	lastReceived.Set(float64(t.UnixNano()) / 1e9)
}

func setLiveClients(n int) {
	liveClients.Set(float64(n))
}
