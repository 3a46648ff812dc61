package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser — парсер стандартных пятипольных cron-выражений.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ErrNoSchedule — не задано ни cron-выражение, ни интервал.
var ErrNoSchedule = errors.New("schedule has neither cron expression nor interval")

// Schedule — расписание повторных запусков пакета.
type Schedule struct {
	// Cron — cron-выражение ("*/15 * * * *", "@hourly").
	Cron string

	// Interval — фиксированный интервал между запусками.
	// Используется, если Cron пуст.
	Interval time.Duration

	// Timezone — часовой пояс cron-выражения (IANA). Пусто — UTC.
	Timezone string
}

// IsCron возвращает true для расписания по cron-выражению.
func (s Schedule) IsCron() bool {
	return s.Cron != ""
}

// Validate проверяет расписание.
func (s Schedule) Validate() error {
	if s.IsCron() {
		return ValidateCronExpr(s.Cron)
	}
	if s.Interval <= 0 {
		return ErrNoSchedule
	}
	return nil
}

// NextRun вычисляет время следующего запуска после from.
//
// Невалидный часовой пояс заменяется на UTC.
func NextRun(s Schedule, from time.Time) (time.Time, error) {
	loc := time.UTC
	if s.Timezone != "" {
		if l, err := time.LoadLocation(s.Timezone); err == nil {
			loc = l
		}
	}
	fromInTz := from.In(loc)

	if s.IsCron() {
		sched, err := cronParser.Parse(s.Cron)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse cron expression %q: %w", s.Cron, err)
		}
		return sched.Next(fromInTz), nil
	}

	if s.Interval > 0 {
		return fromInTz.Add(s.Interval), nil
	}

	return time.Time{}, ErrNoSchedule
}

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}
