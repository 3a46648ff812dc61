// Package telemetry обеспечивает наблюдаемость Rowpipe.
//
// Включает:
//   - logging.go — structured logging через slog (в stderr)
//   - metrics.go — Prometheus метрики строк, шагов и HTTP запросов
//   - tracing.go — OpenTelemetry трассировка с выгрузкой в файл
//
// Метрики отдаются на /metrics, если задан metrics.addr.
package telemetry
