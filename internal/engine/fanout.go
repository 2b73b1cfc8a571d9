package engine

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Sentinel/internal/domain"
)

// FanOutResult — результаты параллельного запуска шагов.
type FanOutResult struct {
	// Results[i] — результат steps[i].
	Results []domain.CheckResult

	// FailedCount — количество результатов со статусом fail.
	FailedCount int
}

// FanOutConfig — конфигурация FanOut.
type FanOutConfig struct {
	// Executor — исполнитель шагов (default: NewExecutor с SystemClock).
	Executor *Executor

	// Limit — максимум одновременно выполняемых шагов (0 — без ограничения).
	Limit int

	// Logger
	Logger *slog.Logger
}

// FanOut запускает независимые шаги параллельно и ждёт завершения всех.
type FanOut struct {
	executor *Executor
	limit    int
	logger   *slog.Logger
}

// NewFanOut создаёт FanOut.
func NewFanOut(cfg FanOutConfig) *FanOut {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	executor := cfg.Executor
	if executor == nil {
		executor = NewExecutor(ExecutorConfig{Logger: logger})
	}

	return &FanOut{
		executor: executor,
		limit:    cfg.Limit,
		logger:   logger,
	}
}

// Executor возвращает исполнитель шагов.
func (f *FanOut) Executor() *Executor {
	return f.executor
}

// RunAll выполняет все шаги параллельно.
//
// Проверка со статусом fail не прерывает остальные шаги: возвращаются
// все len(steps) результатов. FatalError возвращается сразу, остальные
// шаги отменяются через контекст, их результаты отбрасываются.
func (f *FanOut) RunAll(ctx context.Context, steps []Step) (FanOutResult, error) {
	results := make([]domain.CheckResult, len(steps))
	if len(steps) == 0 {
		return FanOutResult{Results: results}, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if f.limit > 0 {
		g.SetLimit(f.limit)
	}

	fatal := make(chan error, 1)
	done := make(chan error, 1)

	// g.Go блокируется при достижении Limit, поэтому запуск тоже в горутине.
	go func() {
		for i, step := range steps {
			g.Go(func() error {
				res, err := f.executor.Execute(gctx, step)
				if err != nil {
					if IsFatal(err) {
						select {
						case fatal <- err:
						default:
						}
					}
					return err
				}
				results[i] = res
				return nil
			})
		}
		done <- g.Wait()
	}()

	select {
	case err := <-fatal:
		f.logger.Warn("fan-out aborted", "steps", len(steps), "error", err)
		return FanOutResult{}, err
	case err := <-done:
		if err != nil {
			return FanOutResult{}, err
		}
	}

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}

	f.logger.Debug("fan-out settled", "steps", len(steps), "failed", failed)

	return FanOutResult{Results: results, FailedCount: failed}, nil
}
