// Package metrics provides Prometheus metrics for the property sync service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ImportRunsTotal tracks total import runs by status
	ImportRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "propertysync",
			Subsystem: "import",
			Name:      "runs_total",
			Help:      "Total number of import runs by status",
		},
		[]string{"status"},
	)

	// ImportRunDuration tracks import run duration in seconds
	ImportRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "propertysync",
			Subsystem: "import",
			Name:      "run_duration_seconds",
			Help:      "Duration of import runs in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)

	// ImportRecordsTotal tracks processed records by outcome
	ImportRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "propertysync",
			Subsystem: "import",
			Name:      "records_total",
			Help:      "Total number of records processed by outcome",
		},
		[]string{"outcome"},
	)

	// HTTPRequestsTotal tracks outbound HTTP requests to the CRM
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "propertysync",
			Subsystem: "http_client",
			Name:      "requests_total",
			Help:      "Total number of outbound HTTP requests",
		},
		[]string{"method", "status_code"},
	)

	// HTTPRequestDuration tracks outbound HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "propertysync",
			Subsystem: "http_client",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound HTTP requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)

	// AuthTokenRefreshes tracks CRM token refresh operations
	AuthTokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "propertysync",
			Subsystem: "auth",
			Name:      "token_refreshes_total",
			Help:      "Total number of CRM token refresh operations",
		},
		[]string{"status"},
	)

	// UpsertsTotal tracks property upserts by result
	UpsertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "propertysync",
			Subsystem: "database",
			Name:      "upserts_total",
			Help:      "Total number of property upserts by result",
		},
		[]string{"result"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "propertysync",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)
)

// RecordImportRun records an import run metric
func RecordImportRun(status string, durationSeconds float64) {
	ImportRunsTotal.WithLabelValues(status).Inc()
	ImportRunDuration.Observe(durationSeconds)
}

// RecordImportRecord records a single record outcome
func RecordImportRecord(outcome string) {
	ImportRecordsTotal.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records an outbound HTTP request metric
func RecordHTTPRequest(method, statusCode string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordTokenRefresh records a CRM token refresh
func RecordTokenRefresh(status string) {
	AuthTokenRefreshes.WithLabelValues(status).Inc()
}

// RecordUpsert records a property upsert result
func RecordUpsert(result string) {
	UpsertsTotal.WithLabelValues(result).Inc()
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
}
