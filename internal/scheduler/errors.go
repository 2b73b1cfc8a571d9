package scheduler

import "errors"

var (
	// ErrNoSchedule — у задания нет ни cron, ни интервала.
	ErrNoSchedule = errors.New("job has neither cron nor interval")

	// ErrBothSchedules — заданы и cron, и интервал.
	ErrBothSchedules = errors.New("job has both cron and interval")

	// ErrDuplicateJob — два задания с одним именем.
	ErrDuplicateJob = errors.New("duplicate job name")

	// ErrNilJob — у задания нет функции Run.
	ErrNilJob = errors.New("job has no run function")
)
