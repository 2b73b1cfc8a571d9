package orchestrator

import "errors"

// Ошибки валидации фаз.
var (
	// ErrNoPhases — workflow не содержит фаз.
	ErrNoPhases = errors.New("workflow has no phases")

	// ErrEmptyPhaseName — фаза без имени.
	ErrEmptyPhaseName = errors.New("phase has empty name")

	// ErrNilPhase — у фазы нет тела.
	ErrNilPhase = errors.New("phase has no body")

	// ErrDuplicatePhase — несколько фаз с одинаковым именем.
	ErrDuplicatePhase = errors.New("duplicate phase name")

	// ErrUnknownDependency — фаза зависит от несуществующей фазы.
	ErrUnknownDependency = errors.New("phase depends on unknown phase")

	// ErrSelfDependency — фаза зависит от самой себя.
	ErrSelfDependency = errors.New("phase depends on itself")

	// ErrCyclicDependency — обнаружен цикл в зависимостях фаз.
	ErrCyclicDependency = errors.New("cyclic dependency between phases")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	Phase   string // фаза, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.Phase != "" {
		return "phase " + e.Phase + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(phase, field, message string, err error) *ValidationError {
	return &ValidationError{
		Phase:   phase,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
