// Package api содержит HTTP API Sentinel.
//
// Структура:
//   - handler.go        — Handler с зависимостями (монитор, оптимизатор, история)
//   - routes.go         — регистрация маршрутов
//   - middleware.go     — logging, recovery, metrics
//   - response.go       — JSON-конверт {data} / {error}
//   - dto.go            — ответы API
//   - health_handler.go — /status, /health
//   - run_handler.go    — /optimizations, /runs
package api
