package engine

import "github.com/shaiso/Sentinel/internal/domain"

// Aggregate сводит проверки в общий вердикт:
// unhealthy при любом fail, иначе degraded при любом warn, иначе healthy.
//
// Чистая функция, порядок проверок не важен.
func Aggregate(checks []domain.CheckResult) domain.OverallStatus {
	overall := domain.OverallHealthy
	for _, c := range checks {
		switch c.Status {
		case domain.CheckStatusFail:
			return domain.OverallUnhealthy
		case domain.CheckStatusWarn:
			overall = domain.OverallDegraded
		}
	}
	return overall
}

// CountByStatus считает проверки по статусам.
func CountByStatus(checks []domain.CheckResult) map[domain.CheckStatus]int {
	counts := make(map[domain.CheckStatus]int, 3)
	for _, c := range checks {
		counts[c.Status]++
	}
	return counts
}

// FailedChecks возвращает проверки со статусом fail в исходном порядке.
func FailedChecks(checks []domain.CheckResult) []domain.CheckResult {
	var failed []domain.CheckResult
	for _, c := range checks {
		if c.Failed() {
			failed = append(failed, c)
		}
	}
	return failed
}
