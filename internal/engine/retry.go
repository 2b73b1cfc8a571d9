package engine

import (
	"errors"
	"fmt"
	"time"
)

// Значения по умолчанию для backoff.
const (
	defaultBaseDelay = time.Second
	defaultMaxDelay  = 30 * time.Second
)

// BackoffFunc вычисляет задержку перед следующей попыткой.
//
// attempt — номер только что упавшей попытки (с нуля).
// false означает "больше не пытаться".
type BackoffFunc func(err error, attempt int) (time.Duration, bool)

// RetryPolicy — политика повторных попыток шага.
type RetryPolicy struct {
	// MaxAttempts — максимальное количество попыток (включая первую).
	// Значения <= 0 означают одну попытку.
	MaxAttempts int

	// Backoff — задержка между попытками.
	// nil — RetryAfter из RetryableError, иначе QuadraticBackoff(1s).
	Backoff BackoffFunc
}

// Attempts возвращает эффективное количество попыток.
func (p RetryPolicy) Attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// delay возвращает задержку перед попыткой attempt+1.
func (p RetryPolicy) delay(err error, attempt int) (time.Duration, bool) {
	if p.Backoff != nil {
		return p.Backoff(err, attempt)
	}
	return RetryAfterOr(QuadraticBackoff(defaultBaseDelay))(err, attempt)
}

// NoRetry — политика с одной попыткой.
func NoRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

// QuadraticBackoff — задержка (attempt+1)^2 * base.
func QuadraticBackoff(base time.Duration) BackoffFunc {
	return func(_ error, attempt int) (time.Duration, bool) {
		n := time.Duration(attempt + 1)
		return n * n * base, true
	}
}

// ExponentialBackoff — задержка initial * 2^attempt, но не больше max.
func ExponentialBackoff(initial, max time.Duration) BackoffFunc {
	if initial <= 0 {
		initial = defaultBaseDelay
	}
	if max <= 0 {
		max = defaultMaxDelay
	}

	return func(_ error, attempt int) (time.Duration, bool) {
		delay := initial
		for i := 0; i < attempt; i++ {
			delay *= 2
			if delay > max {
				return max, true
			}
		}
		if delay > max {
			delay = max
		}
		return delay, true
	}
}

// FixedBackoff — одинаковая задержка между попытками.
func FixedBackoff(d time.Duration) BackoffFunc {
	return func(error, int) (time.Duration, bool) {
		return d, true
	}
}

// RetryAfterOr использует RetryAfter из RetryableError, если он задан,
// иначе fallback.
func RetryAfterOr(fallback BackoffFunc) BackoffFunc {
	return func(err error, attempt int) (time.Duration, bool) {
		var re *RetryableError
		if errors.As(err, &re) && re.RetryAfter > 0 {
			return re.RetryAfter, true
		}
		return fallback(err, attempt)
	}
}

// ParseBackoff строит BackoffFunc по имени стратегии из конфигурации:
// "fixed", "exponential" или "quadratic" (по умолчанию).
// Подсказки RetryAfter из ошибок учитываются всегда.
func ParseBackoff(name string, initial, max time.Duration) (BackoffFunc, error) {
	if initial <= 0 {
		initial = defaultBaseDelay
	}

	var fallback BackoffFunc
	switch name {
	case "", "quadratic":
		fallback = QuadraticBackoff(initial)
	case "exponential":
		fallback = ExponentialBackoff(initial, max)
	case "fixed":
		fallback = FixedBackoff(initial)
	default:
		return nil, fmt.Errorf("unknown backoff strategy %q", name)
	}

	if max > 0 {
		fallback = capped(fallback, max)
	}
	return RetryAfterOr(fallback), nil
}

func capped(fn BackoffFunc, max time.Duration) BackoffFunc {
	return func(err error, attempt int) (time.Duration, bool) {
		d, ok := fn(err, attempt)
		if d > max {
			d = max
		}
		return d, ok
	}
}
