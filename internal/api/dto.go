package api

import (
	"time"

	"github.com/shaiso/Sentinel/internal/domain"
)

// RunSummaryResponse — строка списка runs.
type RunSummaryResponse struct {
	RunID      string         `json:"runId"`
	Purpose    string         `json:"purpose"`
	Outcome    string         `json:"outcome"`
	StartedAt  time.Time      `json:"startedAt"`
	DurationMs int64          `json:"durationMs"`
	Summary    domain.Summary `json:"summary"`
	AlertCount int            `json:"alertCount"`
	PhaseCount int            `json:"phaseCount"`
}

// RunSummaryFromDomain строит строку списка из результата run.
func RunSummaryFromDomain(r *domain.WorkflowRunResult) RunSummaryResponse {
	return RunSummaryResponse{
		RunID:      r.RunID,
		Purpose:    r.Purpose,
		Outcome:    r.Outcome(),
		StartedAt:  r.StartedAt,
		DurationMs: r.DurationMs,
		Summary:    r.Summary,
		AlertCount: len(r.Alerts),
		PhaseCount: len(r.Phases),
	}
}
