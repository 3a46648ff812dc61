package engine

import (
	"errors"
	"fmt"
)

// Ошибки конфигурации последовательности запросов.
var (
	// ErrInvalidSequence — файл последовательности не удалось разобрать.
	ErrInvalidSequence = errors.New("invalid request sequence")

	// ErrEmptySequence — последовательность не содержит запросов.
	ErrEmptySequence = errors.New("request sequence has no requests")

	// ErrMissingEndpoint — у шага нет endpoint и не задан глобальный override.
	ErrMissingEndpoint = errors.New("request has no endpoint")

	// ErrSecondaryRequired — шаг с циклом, но вторичная таблица не задана.
	ErrSecondaryRequired = errors.New("request loops over secondary table but none was supplied")
)

// Ошибки приведения значений (некритичные, превращаются в предупреждения).
var (
	// ErrArrayParse — значение колонки-массива не удалось разобрать.
	ErrArrayParse = errors.New("array value parse failed")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	Step    string // имя шага, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.Step != "" {
		return "request " + e.Step + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(step, field, message string, err error) *ValidationError {
	return &ValidationError{
		Step:    step,
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// WarningKind — категория некритичной проблемы.
type WarningKind string

// Категории предупреждений.
const (
	WarnUnresolved WarningKind = "unresolved_placeholder"
	WarnCoercion   WarningKind = "coercion"
	WarnExtraction WarningKind = "extraction"
	WarnCondition  WarningKind = "condition"
	WarnMethod     WarningKind = "method"
)

// Warning — некритичная проблема при подстановке, вычислении условия
// или извлечении. Строка продолжает обрабатываться.
type Warning struct {
	Kind    WarningKind
	Name    string // токен, поле или оператор
	Message string
}

// String возвращает текст предупреждения.
func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Name, w.Message)
}
