package notify

import (
	"errors"
	"fmt"
)

var (
	// ErrNoURL — не задан URL webhook.
	ErrNoURL = errors.New("webhook requires a URL")

	// ErrCircuitOpen — circuit breaker открыт, запрос не отправлялся.
	ErrCircuitOpen = errors.New("webhook circuit open")
)

// StatusError — ответ webhook с кодом не 2xx.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Permanent возвращает true для 4xx: повторная отправка не поможет.
func (e *StatusError) Permanent() bool {
	return e.Code >= 400 && e.Code < 500
}
