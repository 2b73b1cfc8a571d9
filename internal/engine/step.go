package engine

import (
	"context"

	"github.com/shaiso/Sentinel/internal/domain"
)

// Attempt — состояние попыток одного вызова шага.
//
// Передаётся в тело шага только для чтения: шаг может, например,
// умножить подсказку RetryAfter на номер попытки.
type Attempt struct {
	// N — номер попытки, начиная с 0.
	N int
}

// StepFunc — тело шага.
//
// Возвращает:
//   - CheckResult, nil — результат (pass/warn/fail), повторов не будет
//   - *RetryableError или любую другую ошибку — повторить, если есть попытки
//   - *FatalError — прервать весь run
type StepFunc func(ctx context.Context, attempt Attempt) (domain.CheckResult, error)

// Step — именованная единица работы с политикой повторов.
type Step struct {
	// Name — имя шага, становится CheckResult.Name по умолчанию.
	Name string

	// Target — проверяемый адрес (для алертов и логов).
	Target string

	Run    StepFunc
	Policy RetryPolicy
}

// NewStep создаёт шаг.
func NewStep(name string, run StepFunc, policy RetryPolicy) Step {
	return Step{Name: name, Run: run, Policy: policy}
}

// validate проверяет, что шаг можно выполнить.
func (s Step) validate() error {
	if s.Name == "" {
		return ErrEmptyStepName
	}
	if s.Run == nil {
		return ErrNilStep
	}
	return nil
}
