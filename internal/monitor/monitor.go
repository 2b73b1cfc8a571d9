package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Sentinel/internal/alert"
	"github.com/shaiso/Sentinel/internal/domain"
	"github.com/shaiso/Sentinel/internal/engine"
	"github.com/shaiso/Sentinel/internal/probe"
	"github.com/shaiso/Sentinel/internal/telemetry"
)

const defaultRecordTimeout = 10 * time.Second

// Purpose — purpose проверки здоровья в командах run.requested.
const Purpose = "health"

// Targets — что проверяет монитор.
type Targets struct {
	// Home — страница для быстрого статуса.
	Home string

	Pages []probe.Target
	APIs  []probe.Target

	// Sitemap и Robots — URL; пустая строка отключает проверку.
	Sitemap string
	Robots  string
}

// Steps строит шаги проверки в порядке: страницы, API, sitemap, robots.
func (t Targets) Steps(f probe.Fetcher, opts probe.Options) []engine.Step {
	steps := make([]engine.Step, 0, len(t.Pages)+len(t.APIs)+2)
	for _, p := range t.Pages {
		steps = append(steps, probe.PageCheck(f, p, opts))
	}
	for _, a := range t.APIs {
		steps = append(steps, probe.APICheck(f, a, opts))
	}
	if t.Sitemap != "" {
		steps = append(steps, probe.SitemapCheck(f, probe.Target{URL: t.Sitemap}, opts))
	}
	if t.Robots != "" {
		steps = append(steps, probe.RobotsCheck(f, probe.Target{URL: t.Robots}, opts))
	}
	return steps
}

// HealthRecorder сохраняет историю проверок.
type HealthRecorder interface {
	SaveHealth(ctx context.Context, result *domain.HealthCheckResult) error
}

// Config — конфигурация Monitor.
type Config struct {
	Targets Targets

	// Fetcher — HTTP-клиент проверок (обязателен).
	Fetcher probe.Fetcher

	// FanOut — параллельный запуск шагов (default: NewFanOut).
	FanOut *engine.FanOut

	// Options — пороги и политика повторов шагов.
	Options probe.Options

	// QuickSlowAfter — порог degraded быстрого статуса (default: 2s).
	QuickSlowAfter time.Duration

	Dispatcher *alert.Dispatcher
	Recorder   HealthRecorder
	Metrics    *telemetry.Metrics
	Logger     *slog.Logger
}

// Monitor выполняет проверки здоровья и хранит последний результат.
type Monitor struct {
	fetcher        probe.Fetcher
	fanout         *engine.FanOut
	clock          engine.Clock
	opts           probe.Options
	quickSlowAfter time.Duration
	dispatcher     *alert.Dispatcher
	recorder       HealthRecorder
	metrics        *telemetry.Metrics
	logger         *slog.Logger

	mu      sync.RWMutex
	targets Targets
	latest  *domain.HealthCheckResult
}

// New создаёт Monitor.
func New(cfg Config) *Monitor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fanout := cfg.FanOut
	if fanout == nil {
		fanout = engine.NewFanOut(engine.FanOutConfig{Logger: logger})
	}

	return &Monitor{
		fetcher:        cfg.Fetcher,
		fanout:         fanout,
		clock:          fanout.Executor().Clock(),
		opts:           cfg.Options,
		quickSlowAfter: cfg.QuickSlowAfter,
		dispatcher:     cfg.Dispatcher,
		recorder:       cfg.Recorder,
		metrics:        cfg.Metrics,
		logger:         logger.With("component", "monitor"),
		targets:        cfg.Targets,
	}
}

// SetTargets заменяет цели проверки. Идущая проверка не затрагивается.
func (m *Monitor) SetTargets(t Targets) {
	m.mu.Lock()
	m.targets = t
	m.mu.Unlock()
	m.logger.Info("targets updated", "pages", len(t.Pages), "apis", len(t.APIs))
}

// Targets возвращает текущие цели.
func (m *Monitor) Targets() Targets {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.targets
}

// Latest возвращает последний результат Check или nil.
func (m *Monitor) Latest() *domain.HealthCheckResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

// Check выполняет все проверки и возвращает сводный результат.
//
// Упавшие проверки не являются ошибкой: они попадают в Checks со статусом
// fail и дают по одному алерту. Ошибка возвращается только при фатальном
// сбое или отмене контекста.
func (m *Monitor) Check(ctx context.Context) (*domain.HealthCheckResult, error) {
	checkID := uuid.NewString()
	logger := telemetry.WithCheckID(m.logger, checkID)

	steps := m.Targets().Steps(m.fetcher, m.opts)
	logger.Info("health check started", "checks", len(steps))

	out, err := m.fanout.RunAll(ctx, steps)
	if err != nil {
		logger.Error("health check aborted", "error", err)
		return nil, fmt.Errorf("health check %s: %w", checkID, err)
	}

	result := &domain.HealthCheckResult{
		CheckID:   checkID,
		Timestamp: m.clock.Now(),
		Overall:   engine.Aggregate(out.Results),
		Checks:    out.Results,
		Alerts:    Alerts(out.Results),
	}

	m.metrics.HealthOverall(result.Overall.Severity())

	m.dispatcher.Dispatch(ctx, alert.Batch{
		Source:    alert.SourceMonitor,
		RunID:     checkID,
		Overall:   result.Overall,
		Alerts:    result.Alerts,
		Timestamp: result.Timestamp,
	})

	m.record(ctx, result, logger)

	m.mu.Lock()
	m.latest = result
	m.mu.Unlock()

	logger.Info("health check completed",
		"overall", result.Overall,
		"failed", out.FailedCount,
		"alerts", len(result.Alerts),
	)
	return result, nil
}

func (m *Monitor) record(ctx context.Context, result *domain.HealthCheckResult, logger *slog.Logger) {
	if m.recorder == nil {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultRecordTimeout)
	defer cancel()

	if err := m.recorder.SaveHealth(rctx, result); err != nil {
		logger.Warn("failed to record health check", "error", err)
	}
}

// Quick возвращает быстрый статус домашней страницы.
func (m *Monitor) Quick(ctx context.Context) domain.QuickStatusResult {
	res := probe.Quick(ctx, m.fetcher, m.clock, m.Targets().Home, m.quickSlowAfter)
	m.metrics.QuickLatency(res.LatencyMs)
	return res
}

// Alerts — по одному алерту на каждую проверку со статусом fail.
func Alerts(checks []domain.CheckResult) []string {
	var alerts []string
	for _, c := range engine.FailedChecks(checks) {
		alerts = append(alerts, FormatAlert(c))
	}
	return alerts
}

// FormatAlert форматирует алерт: "<name> (<target>) failed: <message>".
func FormatAlert(c domain.CheckResult) string {
	if c.Target == "" {
		return fmt.Sprintf("%s failed: %s", c.Name, c.Message)
	}
	return fmt.Sprintf("%s (%s) failed: %s", c.Name, c.Target, c.Message)
}
