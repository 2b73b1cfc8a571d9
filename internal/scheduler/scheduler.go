package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shaiso/Sentinel/internal/engine"
	"github.com/shaiso/Sentinel/internal/telemetry"
)

// Job — периодическое задание.
type Job struct {
	Name string
	Spec Spec
	Run  func(ctx context.Context) error
}

// Config — конфигурация Scheduler.
type Config struct {
	Jobs    []Job
	Clock   engine.Clock
	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

type entry struct {
	job     Job
	nextDue time.Time
}

// Scheduler выполняет задания по их расписанию.
type Scheduler struct {
	entries []*entry
	clock   engine.Clock
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// New создаёт Scheduler и вычисляет первые запуски от текущего времени.
func New(cfg Config) (*Scheduler, error) {
	clock := cfg.Clock
	if clock == nil {
		clock = engine.SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		clock:   clock,
		metrics: cfg.Metrics,
		logger:  logger.With("component", "scheduler"),
	}

	now := clock.Now()
	seen := make(map[string]bool, len(cfg.Jobs))
	for _, job := range cfg.Jobs {
		if job.Run == nil {
			return nil, fmt.Errorf("job %s: %w", job.Name, ErrNilJob)
		}
		if seen[job.Name] {
			return nil, fmt.Errorf("job %s: %w", job.Name, ErrDuplicateJob)
		}
		seen[job.Name] = true

		if err := job.Spec.Validate(); err != nil {
			return nil, fmt.Errorf("job %s: %w", job.Name, err)
		}
		next, err := NextDue(job.Spec, now)
		if err != nil {
			return nil, fmt.Errorf("job %s: %w", job.Name, err)
		}
		s.entries = append(s.entries, &entry{job: job, nextDue: next})
	}

	return s, nil
}

// NextDue возвращает ближайший запуск среди всех заданий.
func (s *Scheduler) NextDue() (time.Time, bool) {
	if len(s.entries) == 0 {
		return time.Time{}, false
	}
	next := s.entries[0].nextDue
	for _, e := range s.entries[1:] {
		if e.nextDue.Before(next) {
			next = e.nextDue
		}
	}
	return next, true
}

// Jobs возвращает имена заданий и их следующий запуск.
func (s *Scheduler) Jobs() map[string]time.Time {
	out := make(map[string]time.Time, len(s.entries))
	for _, e := range s.entries {
		out[e.job.Name] = e.nextDue
	}
	return out
}

// Tick выполняет задания, время которых наступило к now.
//
// Задания запускаются по порядку nextDue. Ошибка одного задания
// не блокирует остальные. После отмены ctx оставшиеся задания
// не запускаются. Возвращает число запущенных заданий.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) int {
	due := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		if !e.nextDue.After(now) {
			due = append(due, e)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].nextDue.Before(due[j].nextDue) })

	ran := 0
	for _, e := range due {
		if ctx.Err() != nil {
			break
		}
		s.runJob(ctx, e)
		ran++

		next, err := NextDue(e.job.Spec, s.clock.Now())
		if err != nil {
			// Spec проверен в New, сюда попасть нельзя.
			s.logger.Error("failed to calculate next due", "job", e.job.Name, "error", err)
			continue
		}
		e.nextDue = next
	}

	return ran
}

func (s *Scheduler) runJob(ctx context.Context, e *entry) {
	started := s.clock.Now()
	s.logger.Info("job started", "job", e.job.Name, "schedule", e.job.Spec.String())

	err := e.job.Run(ctx)
	s.metrics.JobRun(e.job.Name, err == nil)

	if err != nil {
		s.logger.Error("job failed",
			"job", e.job.Name,
			"duration", s.clock.Now().Sub(started),
			"error", err,
		)
		return
	}
	s.logger.Info("job completed", "job", e.job.Name, "duration", s.clock.Now().Sub(started))
}

// Run ждёт ближайшего запуска и выполняет задания до отмены ctx.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "jobs", len(s.entries))

	for {
		next, ok := s.NextDue()
		if !ok {
			<-ctx.Done()
			return ctx.Err()
		}

		if wait := next.Sub(s.clock.Now()); wait > 0 {
			if err := s.clock.Sleep(ctx, wait); err != nil {
				s.logger.Info("scheduler stopped")
				return err
			}
		}

		s.Tick(ctx, s.clock.Now())

		if err := ctx.Err(); err != nil {
			s.logger.Info("scheduler stopped")
			return err
		}
	}
}
