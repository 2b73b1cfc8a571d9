package notify

import (
	"context"
	"time"

	"github.com/shaiso/Sentinel/internal/domain"
)

// RunCompletedEvent — тело callback о завершении run.
type RunCompletedEvent struct {
	EventType  string         `json:"eventType"`
	RunID      string         `json:"runId"`
	Purpose    string         `json:"purpose"`
	Outcome    string         `json:"outcome"`
	Summary    domain.Summary `json:"summary"`
	DurationMs int64          `json:"durationMs"`
	AlertCount int            `json:"alertCount"`
	Error      string         `json:"error,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NewRunCompletedEvent строит событие из результата run.
func NewRunCompletedEvent(r *domain.WorkflowRunResult) RunCompletedEvent {
	return RunCompletedEvent{
		EventType:  "run_completed",
		RunID:      r.RunID,
		Purpose:    r.Purpose,
		Outcome:    r.Outcome(),
		Summary:    r.Summary,
		DurationMs: r.DurationMs,
		AlertCount: len(r.Alerts),
		Error:      r.Error,
		Timestamp:  r.CompletedAt,
	}
}

// Callback сообщает внешней системе о завершении run через webhook.
type Callback struct {
	webhook *Webhook
}

// NewCallback создаёт Callback.
func NewCallback(w *Webhook) *Callback {
	return &Callback{webhook: w}
}

// Notify отправляет RunCompletedEvent.
func (c *Callback) Notify(ctx context.Context, result *domain.WorkflowRunResult) error {
	return c.webhook.Post(ctx, NewRunCompletedEvent(result))
}
