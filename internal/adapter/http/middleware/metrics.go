
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
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
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Metrics middleware records HTTP metrics.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		// Wrap response writer to capture status code
		wrapped := &metricsRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

type metricsRecorder struct {
	http.ResponseWriter

	statusCode int
}

func (r *metricsRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// normalizePath normalizes URL paths to avoid high cardinality.
func normalizePath(path string) string {
	// Collapse user IDs, symbols and scopes to placeholders
	// /api/v1/accounts/42/entries -> /api/v1/accounts/:id/entries
	switch {
	case strings.HasPrefix(path, "/api/v1/accounts/") && !strings.HasPrefix(path, "/api/v1/accounts/top"):
		return collapseSegment(path, "/api/v1/accounts/", ":id")
	case strings.HasPrefix(path, "/api/v1/stocks/"):
		return collapseSegment(path, "/api/v1/stocks/", ":symbol")
	case strings.HasPrefix(path, "/api/v1/xp/") && path != "/api/v1/xp/gain":
		normalized := collapseSegment(path, "/api/v1/xp/", ":scope")
		if strings.HasSuffix(normalized, "/leaderboard") {
			return normalized
		}

		return collapseSegment(normalized, "/api/v1/xp/:scope/", ":id")
	}

	return path
}

// collapseSegment replaces the path segment right after prefix with placeholder.
func collapseSegment(path, prefix, placeholder string) string {
	rest := path[len(prefix):]
	if rest == "" {
		return path
	}

	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return prefix + placeholder + rest[i:]
	}

	return prefix + placeholder
}
