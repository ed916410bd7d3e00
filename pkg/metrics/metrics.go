package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InputFilterBlocked counts values and keys removed by the input filter
	InputFilterBlocked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "input_filter_blocked_total",
			Help: "Total number of request values or keys blocked by the input filter",
		},
		[]string{"container", "kind"}, // kind: value, key, collision, depth
	)

	// RefererRejected counts account POSTs aborted by the referer check
	RefererRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "input_filter_referer_rejected_total",
			Help: "Total number of requests rejected by the referer check",
		},
	)

	// PreviewsPurged counts preview campaigns deleted before listings
	PreviewsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "newsletter_previews_purged_total",
			Help: "Total number of preview campaigns purged",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

// RecordBlocked adds n blocked items of kind found in container
func RecordBlocked(container, kind string, n int) {
	if n > 0 {
		InputFilterBlocked.WithLabelValues(container, kind).Add(float64(n))
	}
}

// RecordHTTPRequestDuration observes one request
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
