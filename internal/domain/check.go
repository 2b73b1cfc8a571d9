package domain

import "time"

// CheckResult — результат одного шага (его последней попытки).
//
// CheckResult неизменяем после возврата из Executor.
type CheckResult struct {
	// Name — имя проверки (например, путь страницы "/services").
	Name string `json:"name"`

	// Status — pass / warn / fail.
	Status CheckStatus `json:"status"`

	// LatencyMs — время ответа, если измерялось.
	LatencyMs *int64 `json:"latencyMs,omitempty"`

	// Message — пояснение (причина warn/fail).
	Message string `json:"message,omitempty"`

	// Target — проверяемый адрес.
	Target string `json:"target,omitempty"`

	// Attempts — сколько раз вызывалось тело шага.
	Attempts int `json:"attempts,omitempty"`
}

// Pass создаёт успешный результат.
func Pass(name string, latency time.Duration) CheckResult {
	return CheckResult{Name: name, Status: CheckStatusPass, LatencyMs: Millis(latency)}
}

// Warn создаёт результат с предупреждением.
func Warn(name string, latency time.Duration, message string) CheckResult {
	return CheckResult{Name: name, Status: CheckStatusWarn, LatencyMs: Millis(latency), Message: message}
}

// Fail создаёт упавший результат.
func Fail(name, message string) CheckResult {
	return CheckResult{Name: name, Status: CheckStatusFail, Message: message}
}

// Failed возвращает true для статуса fail.
func (c CheckResult) Failed() bool {
	return c.Status == CheckStatusFail
}

// Latency возвращает время ответа (0, если не измерялось).
func (c CheckResult) Latency() time.Duration {
	if c.LatencyMs == nil {
		return 0
	}
	return time.Duration(*c.LatencyMs) * time.Millisecond
}

// Millis переводит длительность в указатель на миллисекунды.
func Millis(d time.Duration) *int64 {
	ms := d.Milliseconds()
	return &ms
}
