package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/shaiso/Sentinel/internal/engine"
	"github.com/shaiso/Sentinel/internal/repo"
)

// Status — GET /api/v1/status
// Быстрая проверка главной страницы.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	Success(w, h.health.Quick(r.Context()))
}

// LatestHealth — GET /api/v1/health
// Последний результат проверки: из памяти монитора, затем из истории.
func (h *Handler) LatestHealth(w http.ResponseWriter, r *http.Request) {
	if latest := h.health.Latest(); latest != nil {
		Success(w, latest)
		return
	}

	if h.store != nil {
		latest, err := h.store.LatestHealth(r.Context())
		if err == nil {
			Success(w, latest)
			return
		}
		if !errors.Is(err, repo.ErrNotFound) {
			InternalError(w, h.logger, err)
			return
		}
	}

	NotFound(w, "no health check has run yet")
}

// RunHealthCheck — POST /api/v1/health/checks
// Запускает полную проверку и возвращает результат.
func (h *Handler) RunHealthCheck(w http.ResponseWriter, r *http.Request) {
	if !h.checkMu.TryLock() {
		Conflict(w, "health check already running")
		return
	}
	defer h.checkMu.Unlock()

	result, err := h.health.Check(r.Context())
	if err != nil {
		if engine.IsCancelled(err) || errors.Is(err, context.Canceled) {
			Unavailable(w, "health check cancelled")
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	h.logger.Info("health check requested",
		"check_id", result.CheckID,
		"overall", result.Overall,
		"failed", result.FailedCount(),
	)
	Created(w, result)
}
