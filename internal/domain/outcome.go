package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// RowOutcome — итог обработки одной строки.
//
// Создаётся оркестратором один раз на строку и используется
// для итоговой статистики и журнала ошибок.
type RowOutcome struct {
	// Row — номер строки (1-based).
	Row int `json:"row"`

	// Status — SUCCEEDED или FAILED.
	Status RowStatus `json:"status"`

	// Extracted — снимок извлечённых значений на момент завершения.
	// При ошибке содержит только значения успешно завершённых шагов.
	Extracted map[string]any `json:"extracted"`

	// Steps — итог по каждому шагу, в порядке выполнения.
	Steps []StepResult `json:"steps"`

	// FailedStep — имя упавшего шага.
	FailedStep string `json:"failed_step,omitempty"`

	// StatusCode — HTTP-код упавшего запроса (0, если ответа не было).
	StatusCode int `json:"status_code,omitempty"`

	// Error — описание ошибки (тело ответа или текст ошибки).
	Error string `json:"error,omitempty"`

	// Warnings — некритичные предупреждения (подстановка, условия, извлечение).
	Warnings []string `json:"warnings,omitempty"`

	// Duration — время обработки строки.
	Duration time.Duration `json:"duration"`
}

// Succeeded возвращает true, если строка обработана успешно.
func (o *RowOutcome) Succeeded() bool {
	return o.Status == RowStatusSucceeded
}

// StepResult — итог одного шага.
type StepResult struct {
	Name   string     `json:"name"`
	Status StepStatus `json:"status"`

	// Calls — количество выполненных HTTP-вызовов.
	Calls int `json:"calls"`

	// Declined — вызовы, отклонённые оператором в интерактивном режиме.
	Declined int `json:"declined,omitempty"`
}

// FailureRecord — запись журнала ошибок.
type FailureRecord struct {
	ID         uuid.UUID `json:"id"`
	BatchID    uuid.UUID `json:"batch_id"`
	Timestamp  time.Time `json:"timestamp"`
	Row        int       `json:"row"`
	Step       string    `json:"step"`
	StatusCode int       `json:"status_code,omitempty"`
	Message    string    `json:"message"`
}

// StatusText возвращает HTTP-код строкой или "N/A", если ответа не было.
func (r *FailureRecord) StatusText() string {
	if r.StatusCode == 0 {
		return "N/A"
	}
	return strconv.Itoa(r.StatusCode)
}

// NewFailureRecord создаёт запись журнала из итога упавшей строки.
func NewFailureRecord(batchID uuid.UUID, outcome *RowOutcome) FailureRecord {
	return FailureRecord{
		ID:         uuid.New(),
		BatchID:    batchID,
		Timestamp:  time.Now().UTC(),
		Row:        outcome.Row,
		Step:       outcome.FailedStep,
		StatusCode: outcome.StatusCode,
		Message:    outcome.Error,
	}
}
