package engine

import (
	"errors"
	"fmt"
	"time"
)

// Ошибки выполнения шагов.
var (
	// ErrStepCancelled — шаг прерван отменой контекста.
	ErrStepCancelled = errors.New("step cancelled")

	// ErrNilStep — у шага нет тела.
	ErrNilStep = errors.New("step has no body")

	// ErrEmptyStepName — у шага нет имени.
	ErrEmptyStepName = errors.New("step has empty name")
)

// RetryableError — временная ошибка шага.
//
// Executor повторит шаг после RetryAfter (или задержки из политики),
// пока не исчерпаны попытки. После исчерпания ошибка превращается
// в проверку со статусом fail.
type RetryableError struct {
	Message string

	// RetryAfter — рекомендуемая задержка перед следующей попыткой.
	RetryAfter time.Duration

	// LatencyMs — время ответа последней попытки, если измерялось.
	LatencyMs *int64

	Err error
}

// Error реализует интерфейс error.
func (e *RetryableError) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Retryable создаёт RetryableError.
func Retryable(retryAfter time.Duration, format string, args ...any) *RetryableError {
	return &RetryableError{
		Message:    fmt.Sprintf(format, args...),
		RetryAfter: retryAfter,
	}
}

// FatalError — ошибка, после которой run продолжать нельзя.
//
// Проходит через Executor, FanOut, фазу и оркестратор без понижения
// до проверки со статусом fail.
type FatalError struct {
	Message string
	Err     error
}

// Error реализует интерфейс error.
func (e *FatalError) Error() string {
	switch {
	case e.Err == nil:
		return "fatal: " + e.Message
	case e.Message == "":
		return "fatal: " + e.Err.Error()
	default:
		return "fatal: " + e.Message + ": " + e.Err.Error()
	}
}

// Unwrap возвращает базовую ошибку.
func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal создаёт FatalError.
func Fatal(format string, args ...any) *FatalError {
	return &FatalError{Message: fmt.Sprintf(format, args...)}
}

// AsFatal оборачивает err в FatalError.
func AsFatal(message string, err error) *FatalError {
	return &FatalError{Message: message, Err: err}
}

// IsFatal проверяет, что в цепочке err есть FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// IsCancelled проверяет, что шаг прерван отменой контекста.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrStepCancelled)
}

// failureMessage возвращает текст для проверки со статусом fail.
func failureMessage(err error) string {
	var re *RetryableError
	if errors.As(err, &re) {
		return re.Error()
	}
	return err.Error()
}

// failureLatency возвращает время ответа из RetryableError, если оно есть.
func failureLatency(err error) *int64 {
	var re *RetryableError
	if errors.As(err, &re) {
		return re.LatencyMs
	}
	return nil
}
