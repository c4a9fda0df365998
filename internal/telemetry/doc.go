// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики сборки и валидации графов
//
// CLI и демон используют единый формат логирования,
// демон экспортирует метрики на /metrics endpoint.
package telemetry
