package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Spec — расписание задания.
type Spec struct {
	// Cron — выражение из 5 полей или дескриптор (@hourly).
	Cron string

	// Interval — фиксированный интервал между запусками.
	Interval time.Duration

	// Timezone — IANA timezone для Cron (default: UTC).
	Timezone string
}

// Validate проверяет расписание.
func (s Spec) Validate() error {
	switch {
	case s.Cron != "" && s.Interval > 0:
		return ErrBothSchedules
	case s.Cron != "":
		if err := ValidateCron(s.Cron); err != nil {
			return err
		}
	case s.Interval <= 0:
		return ErrNoSchedule
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
		}
	}
	return nil
}

// String — расписание для логов.
func (s Spec) String() string {
	if s.Cron != "" {
		return s.Cron
	}
	return "@every " + s.Interval.String()
}

// NextDue вычисляет следующий запуск после from.
// Невалидная timezone заменяется на UTC. Результат в UTC.
func NextDue(s Spec, from time.Time) (time.Time, error) {
	if s.Cron == "" {
		if s.Interval <= 0 {
			return time.Time{}, ErrNoSchedule
		}
		return from.Add(s.Interval).UTC(), nil
	}

	loc := time.UTC
	if s.Timezone != "" {
		if l, err := time.LoadLocation(s.Timezone); err == nil {
			loc = l
		}
	}

	schedule, err := cronParser.Parse(s.Cron)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", s.Cron, err)
	}
	return schedule.Next(from.In(loc)).UTC(), nil
}

// ValidateCron проверяет cron-выражение.
func ValidateCron(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}
