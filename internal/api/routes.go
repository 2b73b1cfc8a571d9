package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger, h.metrics),
	)

	// Health
	mux.Handle("GET /api/v1/status", chain(http.HandlerFunc(h.Status)))
	mux.Handle("GET /api/v1/health", chain(http.HandlerFunc(h.LatestHealth)))
	mux.Handle("POST /api/v1/health/checks", chain(http.HandlerFunc(h.RunHealthCheck)))

	// Runs
	mux.Handle("POST /api/v1/optimizations", chain(http.HandlerFunc(h.RunOptimization)))
	mux.Handle("GET /api/v1/runs", chain(http.HandlerFunc(h.ListRuns)))
	mux.Handle("GET /api/v1/runs/{id}", chain(http.HandlerFunc(h.GetRun)))
}
