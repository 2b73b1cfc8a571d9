package engine

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/shaiso/Sentinel/internal/domain"
	"github.com/shaiso/Sentinel/internal/engine/enginetest"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestExecutor() (*Executor, *enginetest.FakeClock) {
	clock := enginetest.NewFakeClock(testStart)
	return NewExecutor(ExecutorConfig{Clock: clock, Logger: discardLogger()}), clock
}

// passStep — шаг, который всегда проходит.
func passStep(name string) Step {
	return NewStep(name, func(context.Context, Attempt) (domain.CheckResult, error) {
		return domain.Pass(name, 100*time.Millisecond), nil
	}, NoRetry())
}

// failStep — шаг, который всегда возвращает временную ошибку.
func failStep(name string, attempts int) Step {
	return NewStep(name, func(context.Context, Attempt) (domain.CheckResult, error) {
		return domain.CheckResult{}, Retryable(time.Second, "%s returned 503", name)
	}, RetryPolicy{MaxAttempts: attempts})
}
