package engine

import (
	"context"
	"time"
)

// Outcome — итог гонки с дедлайном.
type Outcome[T any] struct {
	// Value — результат fn (нулевое значение при TimedOut).
	Value T

	// TimedOut — дедлайн наступил раньше, чем fn завершилась.
	TimedOut bool

	// Elapsed — время от старта до итога.
	Elapsed time.Duration
}

// WithDeadline запускает fn параллельно с таймером и возвращает то,
// что завершится первым.
//
// При таймауте контекст fn отменяется, её результат отбрасывается,
// а WithDeadline возвращает Outcome{TimedOut: true} без ошибки.
// d <= 0 — без дедлайна.
func WithDeadline[T any](ctx context.Context, clock Clock, d time.Duration, fn func(context.Context) (T, error)) (Outcome[T], error) {
	clock = orSystem(clock)
	start := clock.Now()

	if d <= 0 {
		v, err := fn(ctx)
		return Outcome[T]{Value: v, Elapsed: clock.Now().Sub(start)}, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type settled struct {
		value T
		err   error
	}
	ch := make(chan settled, 1)

	go func() {
		v, err := fn(runCtx)
		ch <- settled{value: v, err: err}
	}()

	timer := clock.After(d)

	select {
	case s := <-ch:
		return Outcome[T]{Value: s.value, Elapsed: clock.Now().Sub(start)}, s.err
	case <-timer:
		return Outcome[T]{TimedOut: true, Elapsed: clock.Now().Sub(start)}, nil
	case <-ctx.Done():
		var zero T
		return Outcome[T]{Value: zero, Elapsed: clock.Now().Sub(start)}, ctx.Err()
	}
}
