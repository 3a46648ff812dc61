package domain

// RowStatus — статус обработки одной строки.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
type RowStatus string

const (
	// RowStatusPending — строка получена, шаги ещё не запускались.
	RowStatusPending RowStatus = "PENDING"

	// RowStatusRunning — выполняется один из шагов.
	RowStatusRunning RowStatus = "RUNNING"

	// RowStatusSucceeded — все шаги выполнены или пропущены.
	RowStatusSucceeded RowStatus = "SUCCEEDED"

	// RowStatusFailed — один из шагов упал, остальные не выполнялись.
	RowStatusFailed RowStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s RowStatus) IsTerminal() bool {
	switch s {
	case RowStatusSucceeded, RowStatusFailed:
		return true
	default:
		return false
	}
}

// StepStatus — итог одного шага внутри строки.
type StepStatus string

const (
	// StepStatusExecuted — шаг выполнен (хотя бы частично, без ошибки).
	StepStatusExecuted StepStatus = "EXECUTED"

	// StepStatusSkipped — условие не выполнено, executor не вызывался.
	StepStatusSkipped StepStatus = "SKIPPED"

	// StepStatusFailed — шаг завершился ошибкой.
	StepStatusFailed StepStatus = "FAILED"
)
