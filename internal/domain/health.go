package domain

import "time"

// HealthCheckResult — результат одной проверки здоровья сайта.
type HealthCheckResult struct {
	// CheckID — идентификатор проверки.
	CheckID string `json:"checkId"`

	// Timestamp — время завершения проверки.
	Timestamp time.Time `json:"timestamp"`

	// Overall — сводный вердикт по всем Checks.
	Overall OverallStatus `json:"overall"`

	Checks []CheckResult `json:"checks"`

	// Alerts — по одному алерту на каждую упавшую проверку.
	Alerts []string `json:"alerts"`
}

// FailedCount возвращает количество упавших проверок.
func (h *HealthCheckResult) FailedCount() int {
	n := 0
	for _, c := range h.Checks {
		if c.Failed() {
			n++
		}
	}
	return n
}

// QuickStatusResult — облегчённый статус по одной странице.
type QuickStatusResult struct {
	Status    QuickStatus `json:"status"`
	LatencyMs int64       `json:"latencyMs"`
	CheckedAt time.Time   `json:"checkedAt"`

	// StatusCode — HTTP-код ответа (0, если сайт недоступен).
	StatusCode int `json:"statusCode,omitempty"`
}
