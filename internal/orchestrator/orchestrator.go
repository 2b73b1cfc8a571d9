package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Sentinel/internal/domain"
	"github.com/shaiso/Sentinel/internal/engine"
	"github.com/shaiso/Sentinel/internal/telemetry"
)

// Default configuration values.
const (
	defaultHookTimeout = 10 * time.Second
)

// PhaseFunc — тело фазы.
//
// Не фатальная ошибка превращает фазу в failed, *engine.FatalError
// прерывает run.
type PhaseFunc func(ctx context.Context, rc *RunContext) (domain.PhaseResult, error)

// Phase — именованная фаза workflow.
type Phase struct {
	Name string

	// DependsOn — фазы, которые должны завершиться до этой.
	// Если зависимость failed или skipped, фаза пропускается.
	DependsOn []string

	// Tasks — количество задач фазы; используется для failed/skipped,
	// когда тело не вернуло свой PhaseResult (default: 1).
	Tasks int

	Run PhaseFunc
}

func (p *Phase) taskCount() int {
	if p.Tasks <= 0 {
		return 1
	}
	return p.Tasks
}

// Notifier — внешний callback о завершении run.
type Notifier interface {
	Notify(ctx context.Context, result *domain.WorkflowRunResult) error
}

// Notifiers рассылает уведомление всем получателям по очереди.
// Ошибки получателей объединяются, nil-элементы пропускаются.
type Notifiers []Notifier

// Notify реализует Notifier.
func (ns Notifiers) Notify(ctx context.Context, result *domain.WorkflowRunResult) error {
	var errs []error
	for _, n := range ns {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder — история завершённых runs.
type Recorder interface {
	SaveRun(ctx context.Context, result *domain.WorkflowRunResult) error
}

// Orchestrator выполняет фазы workflow по порядку и собирает итог run.
type Orchestrator struct {
	clock       engine.Clock
	notifier    Notifier
	recorder    Recorder
	metrics     *telemetry.Metrics
	hookTimeout time.Duration
	logger      *slog.Logger
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Clock — источник startedAt/completedAt и таймера дедлайна.
	Clock engine.Clock

	// Notifier — callback о завершении (может быть nil).
	Notifier Notifier

	// Recorder — сохранение истории (может быть nil).
	Recorder Recorder

	// Metrics (может быть nil).
	Metrics *telemetry.Metrics

	// HookTimeout — таймаут Notifier и Recorder (default: 10s).
	HookTimeout time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	clock := cfg.Clock
	if clock == nil {
		clock = engine.SystemClock{}
	}

	hookTimeout := cfg.HookTimeout
	if hookTimeout <= 0 {
		hookTimeout = defaultHookTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		clock:       clock,
		notifier:    cfg.Notifier,
		recorder:    cfg.Recorder,
		metrics:     cfg.Metrics,
		hookTimeout: hookTimeout,
		logger:      logger,
	}
}

// NewRunID создаёт ID run: "<purpose>_<unix-ms>_<8 hex>".
func NewRunID(purpose string, at time.Time) string {
	if purpose == "" {
		purpose = "run"
	}
	return fmt.Sprintf("%s_%d_%s", purpose, at.UnixMilli(), uuid.NewString()[:8])
}

// Run выполняет фазы без дедлайна.
//
// При FatalError возвращает частичный результат (фазы до ошибки,
// Aborted=true) вместе с ошибкой. Ошибка валидации фаз возвращается
// до старта run, с nil-результатом.
func (o *Orchestrator) Run(ctx context.Context, purpose string, phases []Phase) (*domain.WorkflowRunResult, error) {
	return o.RunWithDeadline(ctx, purpose, phases, 0)
}

// RunWithDeadline выполняет фазы, ограничивая весь run дедлайном d.
//
// При таймауте текущая фаза отменяется, а результат содержит
// завершённые к этому моменту фазы и TimedOut=true.
func (o *Orchestrator) RunWithDeadline(ctx context.Context, purpose string, phases []Phase, d time.Duration) (*domain.WorkflowRunResult, error) {
	plan, err := BuildPlan(phases)
	if err != nil {
		return nil, fmt.Errorf("build plan: %w", err)
	}

	startedAt := o.clock.Now()
	runID := NewRunID(purpose, startedAt)
	state := newRunState(runID, purpose, startedAt)
	rc := NewRunContext(runID, purpose)
	logger := telemetry.WithRunID(o.logger, runID)

	logger.Info("workflow started",
		"event", "start",
		"purpose", purpose,
		"phases", plan.Size(),
		"deadline", d,
	)

	outcome, runErr := engine.WithDeadline(ctx, o.clock, d, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, o.execute(ctx, plan, state, rc, logger)
	})

	result := state.snapshot()
	result.TimedOut = outcome.TimedOut
	if runErr != nil {
		result.Aborted = true
		result.Error = runErr.Error()
	}
	result.Alerts = rc.Alerts()
	result.Finalize(o.clock.Now())

	if runErr != nil {
		logger.Error("workflow aborted",
			"event", "error",
			"error", runErr,
			"phases_completed", len(result.Phases),
			"duration_ms", result.DurationMs,
		)
	} else {
		logger.Info("workflow completed",
			"event", "complete",
			"outcome", result.Outcome(),
			"timed_out", result.TimedOut,
			"total_tasks", result.Summary.TotalTasks,
			"successful", result.Summary.Successful,
			"failed", result.Summary.Failed,
			"skipped", result.Summary.Skipped,
			"duration_ms", result.DurationMs,
		)
	}

	o.metrics.RunFinished(purpose, result.Outcome(), result.Duration())
	o.complete(ctx, result, logger)

	return result, runErr
}

// execute выполняет фазы плана по порядку.
// Возвращает только FatalError или ошибку отмены контекста.
func (o *Orchestrator) execute(ctx context.Context, plan *Plan, state *runState, rc *RunContext, logger *slog.Logger) error {
	for _, phase := range plan.Order {
		if err := ctx.Err(); err != nil {
			return err
		}

		var result domain.PhaseResult

		if blocker, status, blocked := blockedBy(rc, phase); blocked {
			result = engine.SkippedPhase(phase.Name, phase.taskCount(),
				fmt.Sprintf("dependency %s %s", blocker, status))
		} else {
			started := o.clock.Now()

			res, err := phase.Run(ctx, rc)
			if err != nil {
				if engine.IsFatal(err) {
					return fmt.Errorf("phase %s: %w", phase.Name, err)
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				res = engine.FailedPhase(phase.Name, phase.taskCount(), err)
			}
			result = normalize(phase, res, o.clock.Now().Sub(started))
		}

		state.record(result)
		rc.setStatus(phase.Name, result.Status)
		o.metrics.PhaseResult(string(result.Status))

		totals := state.stats()
		logger.Info("phase result",
			"event", "result",
			"phase", result.Name,
			"status", result.Status,
			"tasks", result.TaskCount,
			"errors", len(result.Errors),
			"duration_ms", result.DurationMs,
			"total_tasks", totals.TotalTasks,
		)
	}
	return nil
}

// blockedBy возвращает первую зависимость фазы со статусом failed/skipped.
func blockedBy(rc *RunContext, phase *Phase) (string, domain.PhaseStatus, bool) {
	for _, dep := range phase.DependsOn {
		if status, ok := rc.PhaseStatus(dep); ok && status.Blocks() {
			return dep, status, true
		}
	}
	return "", "", false
}

// normalize дополняет PhaseResult, возвращённый телом фазы.
func normalize(phase *Phase, res domain.PhaseResult, elapsed time.Duration) domain.PhaseResult {
	if res.Name == "" {
		res.Name = phase.Name
	}
	if res.TaskCount == 0 {
		res.TaskCount = phase.taskCount()
	}
	if res.Errors == nil {
		res.Errors = make([]string, 0)
	}
	if res.Status == "" {
		res.Status = engine.DerivePhaseStatus(res.TaskCount, len(res.Errors))
	}
	if res.DurationMs == 0 {
		res.DurationMs = elapsed.Milliseconds()
	}
	return res
}

// complete вызывает Recorder и Notifier ровно один раз.
// Их ошибки только логируются.
func (o *Orchestrator) complete(ctx context.Context, result *domain.WorkflowRunResult, logger *slog.Logger) {
	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.hookTimeout)
	defer cancel()

	if o.recorder != nil {
		if err := o.recorder.SaveRun(hookCtx, result); err != nil {
			logger.Warn("failed to record run", "error", err)
		}
	}

	if o.notifier != nil {
		if err := o.notifier.Notify(hookCtx, result); err != nil {
			logger.Warn("completion callback failed", "error", err)
		}
	}
}
