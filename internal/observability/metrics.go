package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every custom metric the API and worker export.
type Metrics struct {
	// HTTP
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Tasks
	TasksCreatedTotal      *prometheus.CounterVec
	TasksProcessedTotal    *prometheus.CounterVec
	TaskProcessingDuration *prometheus.HistogramVec
	TasksFailedTotal       *prometheus.CounterVec

	// OCR
	OCRRequestsTotal   *prometheus.CounterVec
	OCRRequestDuration prometheus.Histogram
	OCRRetriesTotal    prometheus.Counter

	// Cache (Redis)
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Queue (RabbitMQ)
	QueueMessagesPublished *prometheus.CounterVec
	QueueMessagesConsumed  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		TasksCreatedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasks_created_total",
				Help: "Total number of background tasks created",
			},
			[]string{"task_type"},
		),

		TasksProcessedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasks_processed_total",
				Help: "Total number of background tasks processed",
			},
			[]string{"task_type", "status"}, // status: completed, failed
		),

		TaskProcessingDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "task_processing_duration_seconds",
				Help:    "Duration of task processing in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"task_type"},
		),

		TasksFailedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasks_failed_total",
				Help: "Total number of tasks that failed processing",
			},
			[]string{"task_type", "error_type"},
		),

		OCRRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ocr_requests_total",
				Help: "Total number of OCR provider calls",
			},
			[]string{"outcome"}, // success, no_text, error, cached
		),

		OCRRequestDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ocr_request_duration_seconds",
				Help:    "Duration of OCR provider calls in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		),

		OCRRetriesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ocr_retries_total",
				Help: "Total number of OCR provider retries",
			},
		),

		CacheHitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"key_type"},
		),

		CacheMissesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"key_type"},
		),

		QueueMessagesPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_messages_published_total",
				Help: "Total number of messages published to the queue",
			},
			[]string{"queue_name"},
		),

		QueueMessagesConsumed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_messages_consumed_total",
				Help: "Total number of messages consumed from the queue",
			},
			[]string{"queue_name"},
		),
	}
}

// GlobalMetrics is the process-wide instance, set once at startup.
var GlobalMetrics *Metrics

func InitMetrics() {
	GlobalMetrics = NewMetrics()
}
