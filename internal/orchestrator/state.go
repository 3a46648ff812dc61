package orchestrator

import (
	"fmt"
	"sync"

	"github.com/shaiso/Rowpipe/internal/domain"
)

// RowState — состояние обработки одной строки.
//
// Создаётся на каждую строку и отбрасывается после получения итога.
// Переходы:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
//
// Пока строка в RUNNING, Advance сдвигает текущий шаг только вперёд.
type RowState struct {
	row        int
	status     domain.RowStatus
	step       int
	failedStep string

	mu sync.RWMutex
}

// NewRowState создаёт состояние строки в статусе PENDING.
func NewRowState(row int) *RowState {
	return &RowState{
		row:    row,
		status: domain.RowStatusPending,
		step:   -1,
	}
}

// Start переводит строку в RUNNING.
func (s *RowState) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.RowStatusPending {
		return s.invalid(domain.RowStatusRunning)
	}
	s.status = domain.RowStatusRunning
	return nil
}

// Advance делает шаг step текущим. Шаги идут строго по возрастанию.
func (s *RowState) Advance(step int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.RowStatusRunning {
		return fmt.Errorf("%w: row %d: advance to step %d in %s", ErrInvalidTransition, s.row, step, s.status)
	}
	if step <= s.step {
		return fmt.Errorf("%w: row %d: step %d after step %d", ErrInvalidTransition, s.row, step, s.step)
	}
	s.step = step
	return nil
}

// Succeed завершает строку успешно.
func (s *RowState) Succeed() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.RowStatusRunning {
		return s.invalid(domain.RowStatusSucceeded)
	}
	s.status = domain.RowStatusSucceeded
	return nil
}

// Fail завершает строку ошибкой на шаге stepName.
func (s *RowState) Fail(stepName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.RowStatusRunning {
		return s.invalid(domain.RowStatusFailed)
	}
	s.status = domain.RowStatusFailed
	s.failedStep = stepName
	return nil
}

// Status возвращает текущий статус.
func (s *RowState) Status() domain.RowStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Step возвращает индекс текущего шага (-1 до первого шага).
func (s *RowState) Step() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.step
}

// FailedStep возвращает имя упавшего шага.
func (s *RowState) FailedStep() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failedStep
}

func (s *RowState) invalid(to domain.RowStatus) error {
	return fmt.Errorf("%w: row %d: %s → %s", ErrInvalidTransition, s.row, s.status, to)
}
