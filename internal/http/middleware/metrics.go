package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "chatd"
	metricsSubsystem = "http"
)

var (
	httpReqs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "path", "status"})

	// Unary requests only; an SSE response would skew every bucket.
	httpLat = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "request_duration_seconds",
		Help:      "Duration of non-streaming HTTP requests.",
		Buckets:   []float64{.005, .025, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"method", "path"})

	httpStreamDur = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "stream_duration_seconds",
		Help:      "Lifetime of server-sent event responses.",
		Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"path"})

	httpInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "requests_inflight",
		Help:      "Requests currently being served.",
	})

	httpRespSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "response_size_bytes",
		Help:      "Size of HTTP response bodies.",
		Buckets:   prometheus.ExponentialBuckets(256, 4, 9), // 256B..16MiB
	}, []string{"method", "path"})

	httpPanics = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "panics_total",
		Help:      "Handler panics caught by Recovery.",
	})
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpStreamDur, httpInflight, httpRespSize, httpPanics)
}

// unmatchedRoute labels requests that hit no registered route, keeping
// scanners from creating one series per probed URL.
const unmatchedRoute = "unmatched"

// Metrics instruments every request, labelled by the registered Gin route.
// Event-stream responses are timed in their own histogram.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = unmatchedRoute
		}
		method := c.Request.Method
		elapsed := time.Since(start).Seconds()

		httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		if isEventStream(c) {
			httpStreamDur.WithLabelValues(path).Observe(elapsed)
		} else {
			httpLat.WithLabelValues(method, path).Observe(elapsed)
		}
		// -1 when nothing was written.
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}

func isEventStream(c *gin.Context) bool {
	return strings.HasPrefix(c.Writer.Header().Get("Content-Type"), "text/event-stream")
}
