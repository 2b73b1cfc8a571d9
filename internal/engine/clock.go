package engine

import (
	"context"
	"time"
)

// Clock — источник времени и ожидания.
//
// Используется Executor (backoff), WithDeadline (таймер) и оркестратором
// (startedAt/completedAt). Реализации должны быть безопасны
// для конкурентного использования.
type Clock interface {
	// Now возвращает текущее время.
	Now() time.Time

	// Sleep приостанавливает горутину на d.
	// Возвращает ctx.Err(), если контекст отменён раньше.
	Sleep(ctx context.Context, d time.Duration) error

	// After возвращает канал, в который придёт время через d.
	After(d time.Duration) <-chan time.Time
}

// SystemClock — Clock на основе пакета time.
type SystemClock struct{}

// Now возвращает time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sleep ждёт d или отмены контекста.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// After возвращает time.After(d).
func (SystemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// orSystem возвращает SystemClock для nil.
func orSystem(c Clock) Clock {
	if c == nil {
		return SystemClock{}
	}
	return c
}
