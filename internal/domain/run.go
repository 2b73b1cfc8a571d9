package domain

import "time"

// PhaseResult — результат одной фазы workflow.
//
// Создаётся один раз на фазу и не меняется после её завершения.
type PhaseResult struct {
	// Name — имя фазы.
	Name string `json:"name"`

	// Status — success / partial / failed / skipped.
	Status PhaseStatus `json:"status"`

	// TaskCount — количество задач в фазе.
	TaskCount int `json:"taskCount"`

	// Errors — сообщения об ошибках задач или самой фазы.
	Errors []string `json:"errors"`

	// Itemized — true, если Errors содержит ровно одну запись на упавшую задачу.
	// Только такие partial-фазы учитываются в сводке по задачам.
	Itemized bool `json:"itemized,omitempty"`

	// DurationMs — длительность фазы.
	DurationMs int64 `json:"durationMs"`
}

// Summary — итоговые счётчики run.
type Summary struct {
	TotalTasks int `json:"totalTasks"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}

// Add учитывает фазу в сводке.
//
// partial-фаза раскладывается по задачам только при Itemized,
// иначе целиком считается упавшей.
func (s *Summary) Add(p PhaseResult) {
	s.TotalTasks += p.TaskCount

	switch p.Status {
	case PhaseStatusSuccess:
		s.Successful += p.TaskCount
	case PhaseStatusFailed:
		s.Failed += p.TaskCount
	case PhaseStatusSkipped:
		s.Skipped += p.TaskCount
	case PhaseStatusPartial:
		if p.Itemized && len(p.Errors) <= p.TaskCount {
			s.Failed += len(p.Errors)
			s.Successful += p.TaskCount - len(p.Errors)
		} else {
			s.Failed += p.TaskCount
		}
	}
}

// WorkflowRunResult — результат одного запуска workflow.
//
// Создаётся при старте оркестрации, дополняется по мере завершения фаз
// и финализируется в конце.
type WorkflowRunResult struct {
	// RunID — идентификатор запуска: "<purpose>_<unix-ms>_<suffix>".
	RunID string `json:"runId"`

	// Purpose — назначение запуска (health, optimization, ...).
	Purpose string `json:"purpose"`

	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
	DurationMs  int64     `json:"durationMs"`

	// Phases — фазы в порядке выполнения.
	Phases []PhaseResult `json:"phases"`

	Summary Summary `json:"summary"`

	// TimedOut — run не уложился в дедлайн.
	TimedOut bool `json:"timedOut,omitempty"`

	// Aborted — run прерван фатальной ошибкой.
	Aborted bool `json:"aborted,omitempty"`

	// Error — текст фатальной ошибки.
	Error string `json:"error,omitempty"`

	// Alerts — алерты, отправленные по итогам run.
	Alerts []string `json:"alerts,omitempty"`
}

// Finalize фиксирует время завершения и пересчитывает сводку.
func (r *WorkflowRunResult) Finalize(completedAt time.Time) {
	r.CompletedAt = completedAt
	r.DurationMs = completedAt.Sub(r.StartedAt).Milliseconds()

	r.Summary = Summary{}
	for _, p := range r.Phases {
		r.Summary.Add(p)
	}
}

// Phase возвращает фазу по имени.
func (r *WorkflowRunResult) Phase(name string) (PhaseResult, bool) {
	for _, p := range r.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return PhaseResult{}, false
}

// Outcome возвращает краткий итог: aborted, timeout, failed, partial или success.
func (r *WorkflowRunResult) Outcome() string {
	switch {
	case r.Aborted:
		return "aborted"
	case r.TimedOut:
		return "timeout"
	}

	outcome := "success"
	for _, p := range r.Phases {
		switch p.Status {
		case PhaseStatusFailed:
			return "failed"
		case PhaseStatusPartial, PhaseStatusSkipped:
			outcome = "partial"
		}
	}
	return outcome
}

// Duration возвращает продолжительность run.
func (r *WorkflowRunResult) Duration() time.Duration {
	return time.Duration(r.DurationMs) * time.Millisecond
}
