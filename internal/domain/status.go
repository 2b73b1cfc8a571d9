package domain

// CheckStatus — результат одной проверки.
//
//	pass — проверка прошла
//	warn — проверка прошла, но с замечанием (например, медленный ответ)
//	fail — проверка не прошла (после всех retry)
type CheckStatus string

const (
	// CheckStatusPass — проверка прошла.
	CheckStatusPass CheckStatus = "pass"

	// CheckStatusWarn — проверка прошла с предупреждением.
	CheckStatusWarn CheckStatus = "warn"

	// CheckStatusFail — проверка не прошла.
	CheckStatusFail CheckStatus = "fail"
)

// IsValid возвращает true для известных статусов.
func (s CheckStatus) IsValid() bool {
	switch s {
	case CheckStatusPass, CheckStatusWarn, CheckStatusFail:
		return true
	default:
		return false
	}
}

// OverallStatus — сводный вердикт по набору проверок.
type OverallStatus string

const (
	// OverallHealthy — все проверки прошли.
	OverallHealthy OverallStatus = "healthy"

	// OverallDegraded — есть предупреждения, но нет падений.
	OverallDegraded OverallStatus = "degraded"

	// OverallUnhealthy — хотя бы одна проверка упала.
	OverallUnhealthy OverallStatus = "unhealthy"
)

// Severity возвращает числовой вес статуса (чем больше, тем хуже).
func (s OverallStatus) Severity() int {
	switch s {
	case OverallHealthy:
		return 0
	case OverallDegraded:
		return 1
	case OverallUnhealthy:
		return 2
	default:
		return -1
	}
}

// PhaseStatus — статус выполнения фазы.
//
//	success — ни одной ошибки
//	partial — часть задач упала
//	failed  — упали все задачи или сама фаза вернула ошибку
//	skipped — фаза не запускалась
type PhaseStatus string

const (
	// PhaseStatusSuccess — все задачи фазы прошли.
	PhaseStatusSuccess PhaseStatus = "success"

	// PhaseStatusPartial — часть задач упала.
	PhaseStatusPartial PhaseStatus = "partial"

	// PhaseStatusFailed — фаза упала целиком.
	PhaseStatusFailed PhaseStatus = "failed"

	// PhaseStatusSkipped — фаза не запускалась.
	PhaseStatusSkipped PhaseStatus = "skipped"
)

// Blocks возвращает true, если зависимые фазы не должны запускаться.
func (s PhaseStatus) Blocks() bool {
	return s == PhaseStatusFailed || s == PhaseStatusSkipped
}

// QuickStatus — статус для публичной status-страницы.
type QuickStatus string

const (
	// QuickOperational — сайт доступен и отвечает быстро.
	QuickOperational QuickStatus = "operational"

	// QuickDegraded — сайт доступен, но отвечает медленно.
	QuickDegraded QuickStatus = "degraded"

	// QuickOutage — сайт недоступен или отвечает не 2xx.
	QuickOutage QuickStatus = "outage"
)
