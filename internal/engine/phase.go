package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Sentinel/internal/domain"
)

// PhaseReport — результат фазы вместе с проверками её задач.
type PhaseReport struct {
	Result domain.PhaseResult
	Checks []domain.CheckResult
}

// PhaseRunnerConfig — конфигурация PhaseRunner.
type PhaseRunnerConfig struct {
	// FanOut — параллельный запуск шагов (обязателен).
	FanOut *FanOut

	// Logger
	Logger *slog.Logger
}

// PhaseRunner группирует шаги в именованную фазу.
type PhaseRunner struct {
	fanout *FanOut
	clock  Clock
	logger *slog.Logger
}

// NewPhaseRunner создаёт PhaseRunner.
func NewPhaseRunner(cfg PhaseRunnerConfig) *PhaseRunner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fanout := cfg.FanOut
	if fanout == nil {
		fanout = NewFanOut(FanOutConfig{Logger: logger})
	}

	return &PhaseRunner{
		fanout: fanout,
		clock:  fanout.Executor().Clock(),
		logger: logger,
	}
}

// FanOut возвращает параллельный исполнитель фазы.
func (r *PhaseRunner) FanOut() *FanOut {
	return r.fanout
}

// RunPhase выполняет независимые шаги параллельно.
//
// Каждая проверка со статусом fail даёт одну запись в Errors.
// FatalError возвращается без изменений.
func (r *PhaseRunner) RunPhase(ctx context.Context, name string, steps []Step) (PhaseReport, error) {
	start := r.clock.Now()

	out, err := r.fanout.RunAll(ctx, steps)
	if err != nil {
		return PhaseReport{}, err
	}

	errs := make([]string, 0, out.FailedCount)
	for _, c := range out.Results {
		if c.Failed() {
			errs = append(errs, checkError(c))
		}
	}

	return r.report(name, len(steps), errs, out.Results, start), nil
}

// RunChain выполняет зависимые шаги последовательно.
//
// После первой проверки со статусом fail оставшиеся шаги не запускаются
// и записываются в Errors как пропущенные.
func (r *PhaseRunner) RunChain(ctx context.Context, name string, steps []Step) (PhaseReport, error) {
	start := r.clock.Now()
	executor := r.fanout.Executor()

	checks := make([]domain.CheckResult, 0, len(steps))
	errs := make([]string, 0)

	var blockedBy string
	for _, step := range steps {
		if blockedBy != "" {
			errs = append(errs, fmt.Sprintf("%s: skipped after %s failed", step.Name, blockedBy))
			continue
		}

		c, err := executor.Execute(ctx, step)
		if err != nil {
			return PhaseReport{}, err
		}
		checks = append(checks, c)

		if c.Failed() {
			errs = append(errs, checkError(c))
			blockedBy = c.Name
		}
	}

	return r.report(name, len(steps), errs, checks, start), nil
}

func (r *PhaseRunner) report(name string, taskCount int, errs []string, checks []domain.CheckResult, start time.Time) PhaseReport {
	result := domain.PhaseResult{
		Name:       name,
		Status:     DerivePhaseStatus(taskCount, len(errs)),
		TaskCount:  taskCount,
		Errors:     errs,
		Itemized:   true,
		DurationMs: r.clock.Now().Sub(start).Milliseconds(),
	}

	r.logger.Debug("phase settled",
		"phase", name,
		"status", result.Status,
		"tasks", taskCount,
		"errors", len(errs),
	)

	return PhaseReport{Result: result, Checks: checks}
}

// DerivePhaseStatus вычисляет статус фазы по количеству задач и ошибок:
// success без ошибок, partial если упала часть, failed если упали все.
func DerivePhaseStatus(taskCount, errCount int) domain.PhaseStatus {
	switch {
	case errCount == 0:
		return domain.PhaseStatusSuccess
	case errCount < taskCount:
		return domain.PhaseStatusPartial
	default:
		return domain.PhaseStatusFailed
	}
}

// FailedPhase — фаза, тело которой вернуло не фатальную ошибку.
func FailedPhase(name string, taskCount int, err error) domain.PhaseResult {
	return domain.PhaseResult{
		Name:      name,
		Status:    domain.PhaseStatusFailed,
		TaskCount: taskCount,
		Errors:    []string{err.Error()},
	}
}

// SkippedPhase — фаза, которая не запускалась.
func SkippedPhase(name string, taskCount int, reason string) domain.PhaseResult {
	return domain.PhaseResult{
		Name:      name,
		Status:    domain.PhaseStatusSkipped,
		TaskCount: taskCount,
		Errors:    []string{reason},
	}
}

// checkError форматирует упавшую проверку для PhaseResult.Errors.
func checkError(c domain.CheckResult) string {
	if c.Message == "" {
		return c.Name + ": failed"
	}
	return c.Name + ": " + c.Message
}
