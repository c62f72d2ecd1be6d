package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hitcounter_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hitcounter_http_request_duration_seconds",
			Help:    "Histogram of response durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	// CounterUpdates counts Handle outcomes
	CounterUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hitcounter_counter_updates_total",
			Help: "Number of successful or failed counter updates",
		},
		[]string{"result"},
	)

	CounterValue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hitcounter_counter_value",
			Help: "Last counter value written by this instance",
		},
	)

	QueuePublishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hitcounter_queue_publishes_total",
			Help: "Notification publishes by result",
		},
		[]string{"result"},
	)

	// MessagesConsumed is only populated by the counterlog consumer
	MessagesConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hitcounter_messages_consumed_total",
			Help: "Notifications consumed by result",
		},
		[]string{"result"},
	)
)

var initOnce sync.Once

// Init registers all collectors with the default registry. Safe to call twice.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(HTTPRequests, RequestDuration, CounterUpdates, CounterValue, QueuePublishes, MessagesConsumed)
	})
}
