package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coresystem_record_operations_total",
		Help: "Record operations by resource and operation",
	}, []string{"resource", "operation"})

	UploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coresystem_upload_bytes_total",
		Help: "Total bytes written to attachment storage",
	})

	UploadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coresystem_upload_failures_total",
		Help: "Total attachment uploads that failed validation or storage",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coresystem_http_request_duration_seconds",
		Help:    "HTTP request latency by method, route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	SweptUploadFolders = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coresystem_swept_upload_folders_total",
		Help: "Orphan upload folders removed by the nightly sweep",
	})
)

func IncRecordOperation(resource, operation string) {
	RecordOperations.WithLabelValues(label(resource), label(operation)).Inc()
}

func AddUploadBytes(n int) {
	if n > 0 {
		UploadBytesTotal.Add(float64(n))
	}
}

func IncUploadFailure() {
	UploadFailures.Inc()
}

func AddSweptUploadFolders(n int) {
	if n > 0 {
		SweptUploadFolders.Add(float64(n))
	}
}

// HTTPMiddleware records request latency per route. The route template is
// used instead of the raw path so ids do not explode label cardinality.
func HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}

func label(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
