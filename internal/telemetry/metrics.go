package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsProcessed — обработанные строки по итоговому статусу.
	RowsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rowpipe",
			Subsystem: "batch",
			Name:      "rows_total",
			Help:      "Total number of processed rows by final status",
		},
		[]string{"status"},
	)

	// RowDuration — длительность обработки одной строки.
	RowDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rowpipe",
			Subsystem: "batch",
			Name:      "row_duration_seconds",
			Help:      "Duration of a single row pipeline in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// StepsTotal — шаги по результату (executed, skipped, failed).
	StepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rowpipe",
			Subsystem: "pipeline",
			Name:      "steps_total",
			Help:      "Total number of request steps by outcome",
		},
		[]string{"status"},
	)

	// WarningsTotal — некритичные предупреждения по категории.
	WarningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rowpipe",
			Subsystem: "pipeline",
			Name:      "warnings_total",
			Help:      "Total number of non-fatal warnings by kind",
		},
		[]string{"kind"},
	)

	// HTTPRequestsTotal — исходящие HTTP запросы.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rowpipe",
			Subsystem: "http_client",
			Name:      "requests_total",
			Help:      "Total number of outbound HTTP requests",
		},
		[]string{"method", "status_code"},
	)

	// HTTPRequestDuration — длительность исходящих HTTP запросов.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rowpipe",
			Subsystem: "http_client",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound HTTP requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)

	// FailuresLogged — записи в журнал ошибок по драйверу и результату.
	FailuresLogged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rowpipe",
			Subsystem: "failure_log",
			Name:      "records_total",
			Help:      "Total number of failure records written by driver and status",
		},
		[]string{"driver", "status"},
	)
)

// RecordRow фиксирует итог обработки строки.
func RecordRow(status string, durationSeconds float64) {
	RowsProcessed.WithLabelValues(status).Inc()
	RowDuration.Observe(durationSeconds)
}

// RecordStep фиксирует результат шага.
func RecordStep(status string) {
	StepsTotal.WithLabelValues(status).Inc()
}

// RecordWarning фиксирует предупреждение.
func RecordWarning(kind string) {
	WarningsTotal.WithLabelValues(kind).Inc()
}

// RecordHTTPRequest фиксирует исходящий HTTP запрос.
// statusCode 0 означает транспортную ошибку.
func RecordHTTPRequest(method string, statusCode int, durationSeconds float64) {
	code := "error"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	HTTPRequestsTotal.WithLabelValues(method, code).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordFailureLogged фиксирует запись в журнал ошибок.
func RecordFailureLogged(driver string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	FailuresLogged.WithLabelValues(driver, status).Inc()
}
