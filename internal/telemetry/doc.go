// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики шагов, фаз, runs и алертов
//
// Монитор экспортирует метрики на /metrics endpoint.
package telemetry
