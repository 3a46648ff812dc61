package steps

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Ошибки шагов.
var (
	// ErrStepCancelled — выполнение шага отменено.
	ErrStepCancelled = errors.New("step execution cancelled")

	// ErrHTTPRequest — транспортная ошибка HTTP запроса.
	ErrHTTPRequest = errors.New("http request failed")
)

// HTTPError — ответ со статусом вне 2xx.
type HTTPError struct {
	StatusCode int
	Status     string

	// Body — разобранное тело ответа (JSON или строка), если было.
	Body any
}

// Error реализует интерфейс error.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// IsHTTPError проверяет, является ли ошибка HTTP ошибкой.
func IsHTTPError(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr)
}

// StepError — ошибка шага, фатальная для текущей строки.
type StepError struct {
	// Step — имя шага.
	Step string

	// StatusCode — HTTP код, 0 если ответа не было.
	StatusCode int

	// Body — тело ответа, если было.
	Body any

	// Err — исходная ошибка.
	Err error
}

// Error реализует интерфейс error.
func (e *StepError) Error() string {
	return fmt.Sprintf("request %s: %s", e.Step, e.Message())
}

// Unwrap возвращает исходную ошибку.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Message возвращает описание ошибки для журнала: тело ответа,
// если оно есть, иначе текст исходной ошибки.
func (e *StepError) Message() string {
	switch body := e.Body.(type) {
	case nil:
	case string:
		if body != "" {
			return body
		}
	default:
		if b, err := json.Marshal(body); err == nil {
			return string(b)
		}
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// newStepError оборачивает ошибку шага, забирая статус и тело из HTTPError.
func newStepError(step string, err error) *StepError {
	stepErr := &StepError{Step: step, Err: err}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		stepErr.StatusCode = httpErr.StatusCode
		stepErr.Body = httpErr.Body
	}
	return stepErr
}
