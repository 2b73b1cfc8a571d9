package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/shaiso/Sentinel/internal/engine"
	"github.com/shaiso/Sentinel/internal/orchestrator"
	"github.com/shaiso/Sentinel/internal/repo"
)

// RunOptimization — POST /api/v1/optimizations
// Запускает оптимизацию синхронно. При фатальной ошибке отвечает 500
// вместе с частичным результатом. Если run не начался: 503 без целей
// или при отмене, 422 при невалидном плане фаз.
func (h *Handler) RunOptimization(w http.ResponseWriter, r *http.Request) {
	if h.optimizer == nil {
		Unavailable(w, "optimization is not configured")
		return
	}
	if !h.optimizeMu.TryLock() {
		Conflict(w, "optimization already running")
		return
	}
	defer h.optimizeMu.Unlock()

	result, err := h.optimizer.Run(r.Context())
	if err != nil && result == nil {
		h.optimizationNotStarted(w, err)
		return
	}
	if err != nil {
		h.logger.Error("optimization aborted", "error", err)
		JSON(w, http.StatusInternalServerError, ErrorResponse{
			Data:  result,
			Error: ErrorDetail{Code: ErrCodeRunAborted, Message: err.Error()},
		})
		return
	}

	Created(w, result)
}

// optimizationNotStarted отвечает на ошибку, после которой run не создан.
func (h *Handler) optimizationNotStarted(w http.ResponseWriter, err error) {
	var verr *orchestrator.ValidationError
	switch {
	case errors.Is(err, orchestrator.ErrNoPhases):
		Unavailable(w, "no optimization targets configured")
	case errors.As(err, &verr):
		h.logger.Error("invalid optimization plan", "error", err)
		Unprocessable(w, ErrCodeInvalidPlan, err.Error())
	case engine.IsCancelled(err) || errors.Is(err, context.Canceled):
		Unavailable(w, "optimization cancelled")
	default:
		InternalError(w, h.logger, err)
	}
}

// ListRuns — GET /api/v1/runs?limit=20&purpose=optimization
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		Unavailable(w, "run history is not configured")
		return
	}

	filter := repo.RunFilter{Purpose: r.URL.Query().Get("purpose")}
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 0 {
			BadRequest(w, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	runs, err := h.store.ListRuns(r.Context(), filter)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	items := make([]RunSummaryResponse, len(runs))
	for i, run := range runs {
		items[i] = RunSummaryFromDomain(run)
	}
	List(w, items, len(items))
}

// GetRun — GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		Unavailable(w, "run history is not configured")
		return
	}

	run, err := h.store.GetRun(r.Context(), r.PathValue("id"))
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}
	Success(w, run)
}
