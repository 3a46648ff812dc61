package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrInvalidTransition — недопустимый переход состояния строки.
	ErrInvalidTransition = errors.New("invalid row state transition")

	// ErrNoSequence — последовательность запросов не задана.
	ErrNoSequence = errors.New("request sequence is not set")
)
