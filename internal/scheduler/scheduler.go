package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Job — один запуск пакета.
type Job func(ctx context.Context) error

// Scheduler повторяет пакет по расписанию.
type Scheduler struct {
	schedule Schedule
	job      Job
	maxRuns  int
	logger   *slog.Logger

	now func() time.Time
}

// Config — конфигурация Scheduler.
type Config struct {
	Schedule Schedule
	Job      Job

	// MaxRuns — сколько запусков выполнить; 0 — без ограничения.
	MaxRuns int

	Logger *slog.Logger
}

// New создаёт новый Scheduler.
func New(cfg Config) (*Scheduler, error) {
	if err := cfg.Schedule.Validate(); err != nil {
		return nil, err
	}
	if cfg.Job == nil {
		return nil, fmt.Errorf("scheduler job is nil")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		schedule: cfg.Schedule,
		job:      cfg.Job,
		maxRuns:  cfg.MaxRuns,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Permanent помечает ошибку запуска как неустранимую: повтор по
// расписанию её не исправит, и Run возвращает её сразу.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// IsPermanent проверяет, помечена ли ошибка через Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Run ждёт очередного времени по расписанию и запускает Job.
//
// При интервальном расписании первый запуск выполняется сразу.
// Обычная ошибка запуска логируется и не останавливает расписание;
// ошибка, помеченная Permanent, возвращается. Run завершается при
// отмене контекста (возвращает nil) или после MaxRuns запусков.
func (s *Scheduler) Run(ctx context.Context) error {
	for runs := 0; s.maxRuns == 0 || runs < s.maxRuns; runs++ {
		if runs > 0 || s.schedule.IsCron() {
			if !s.wait(ctx) {
				s.logger.Info("scheduler stopped", "runs", runs)
				return nil
			}
		}

		if err := s.job(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if IsPermanent(err) {
				s.logger.Error("scheduled batch cannot be retried", "run", runs+1, "error", err)
				return err
			}
			s.logger.Error("scheduled batch failed", "run", runs+1, "error", err)
		}
	}
	return nil
}

// wait ждёт следующего времени запуска. false — контекст отменён.
func (s *Scheduler) wait(ctx context.Context) bool {
	next, err := NextRun(s.schedule, s.now())
	if err != nil {
		// Расписание проверено в New
		s.logger.Error("cannot compute next run", "error", err)
		return false
	}

	wait := next.Sub(s.now())
	s.logger.Info("next batch scheduled", "at", next.Format(time.RFC3339), "in", wait.Round(time.Second))

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
