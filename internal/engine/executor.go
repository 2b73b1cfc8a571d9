package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Sentinel/internal/domain"
	"github.com/shaiso/Sentinel/internal/telemetry"
)

// ExecutorConfig — конфигурация Executor.
type ExecutorConfig struct {
	// Clock — источник времени для backoff (default: SystemClock).
	Clock Clock

	// Metrics — метрики попыток (может быть nil).
	Metrics *telemetry.Metrics

	// Logger
	Logger *slog.Logger
}

// Executor выполняет один шаг с учётом политики повторов.
type Executor struct {
	clock   Clock
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// NewExecutor создаёт Executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		clock:   orSystem(cfg.Clock),
		metrics: cfg.Metrics,
		logger:  logger,
	}
}

// Clock возвращает источник времени Executor.
func (e *Executor) Clock() Clock {
	return e.clock
}

// Execute выполняет шаг.
//
// Успех возвращается сразу. Временные и неклассифицированные ошибки
// повторяются, пока есть попытки; после исчерпания шаг превращается
// в CheckResult со статусом fail и nil-ошибкой. FatalError возвращается
// сразу, без повторов. Отмена контекста возвращает ErrStepCancelled.
func (e *Executor) Execute(ctx context.Context, step Step) (domain.CheckResult, error) {
	if err := step.validate(); err != nil {
		return domain.CheckResult{}, AsFatal("invalid step "+step.Name, err)
	}

	maxAttempts := step.Policy.Attempts()

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			e.metrics.StepAttempt("cancelled")
			return domain.CheckResult{}, fmt.Errorf("%s: %w: %w", step.Name, ErrStepCancelled, err)
		}

		result, err := step.Run(ctx, Attempt{N: attempt})
		if err == nil {
			e.metrics.StepAttempt("success")
			return e.settle(step, result, attempt+1), nil
		}

		if IsFatal(err) {
			e.metrics.StepAttempt("fatal")
			e.logger.Error("step fatal failure",
				"step", step.Name,
				"attempt", attempt,
				"error", err,
			)
			return domain.CheckResult{}, err
		}

		// Ошибка из-за отмены контекста — не провал проверки.
		if ctx.Err() != nil {
			e.metrics.StepAttempt("cancelled")
			return domain.CheckResult{}, fmt.Errorf("%s: %w: %w", step.Name, ErrStepCancelled, err)
		}

		if attempt+1 >= maxAttempts {
			e.metrics.StepAttempt("exhausted")
			return e.exhausted(step, err, attempt+1), nil
		}

		delay, ok := step.Policy.delay(err, attempt)
		if !ok {
			e.metrics.StepAttempt("exhausted")
			return e.exhausted(step, err, attempt+1), nil
		}

		e.metrics.StepAttempt("retry")
		e.logger.Debug("retrying step",
			"step", step.Name,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"delay", delay,
			"error", err,
		)

		if err := e.clock.Sleep(ctx, delay); err != nil {
			e.metrics.StepAttempt("cancelled")
			return domain.CheckResult{}, fmt.Errorf("%s: %w during backoff: %w", step.Name, ErrStepCancelled, err)
		}
	}
}

// settle дополняет результат шага именем, адресом и числом попыток.
func (e *Executor) settle(step Step, result domain.CheckResult, attempts int) domain.CheckResult {
	if result.Name == "" {
		result.Name = step.Name
	}
	if result.Target == "" {
		result.Target = step.Target
	}
	if result.Status == "" {
		result.Status = domain.CheckStatusPass
	}
	result.Attempts = attempts

	e.metrics.CheckResult(string(result.Status))
	return result
}

// exhausted превращает последнюю ошибку в проверку со статусом fail.
func (e *Executor) exhausted(step Step, err error, attempts int) domain.CheckResult {
	e.logger.Warn("step failed after retries",
		"step", step.Name,
		"attempts", attempts,
		"error", err,
	)

	result := domain.Fail(step.Name, failureMessage(err))
	result.LatencyMs = failureLatency(err)
	return e.settle(step, result, attempts)
}
