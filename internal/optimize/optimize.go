// Package optimize собирает run оптимизации сайта из фаз orchestrator.
package optimize

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/shaiso/Sentinel/internal/alert"
	"github.com/shaiso/Sentinel/internal/domain"
	"github.com/shaiso/Sentinel/internal/engine"
	"github.com/shaiso/Sentinel/internal/monitor"
	"github.com/shaiso/Sentinel/internal/orchestrator"
	"github.com/shaiso/Sentinel/internal/probe"
)

// Purpose — purpose run оптимизации.
const Purpose = "optimization"

// Имена фаз.
const (
	PhaseSEOAudit    = "seo-audit"
	PhasePerformance = "performance"
	PhaseAPIHealth   = "api-health"
	PhaseIndexing    = "indexing"
)

// OutputSitemapURL — ключ вывода seo-audit с адресом sitemap.
const OutputSitemapURL = "sitemapUrl"

// DefaultDeadline — дедлайн run оптимизации.
const DefaultDeadline = 5 * time.Minute

// Config — конфигурация Optimizer.
type Config struct {
	Targets monitor.Targets

	// PingEndpoints — адреса уведомления поисковиков, к ним дописывается
	// экранированный URL sitemap.
	PingEndpoints []string

	Fetcher probe.Fetcher

	// Runner — запуск шагов фаз (default: NewPhaseRunner).
	Runner *engine.PhaseRunner

	Options probe.Options

	// Orchestrator (обязателен).
	Orchestrator *orchestrator.Orchestrator

	// Deadline — дедлайн всего run (default: 5m).
	Deadline time.Duration

	Dispatcher *alert.Dispatcher
	Logger     *slog.Logger
}

// Optimizer выполняет run оптимизации.
type Optimizer struct {
	cfg    Config
	runner *engine.PhaseRunner
	logger *slog.Logger

	mu      sync.RWMutex
	targets monitor.Targets
}

// New создаёт Optimizer.
func New(cfg Config) *Optimizer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = DefaultDeadline
	}

	runner := cfg.Runner
	if runner == nil {
		runner = engine.NewPhaseRunner(engine.PhaseRunnerConfig{Logger: logger})
	}

	return &Optimizer{
		cfg:    cfg,
		runner:  runner,
		logger:  logger.With("component", "optimizer"),
		targets: cfg.Targets,
	}
}

// SetTargets заменяет цели. Идущий run не затрагивается.
func (o *Optimizer) SetTargets(t monitor.Targets) {
	o.mu.Lock()
	o.targets = t
	o.mu.Unlock()
	o.logger.Info("targets updated", "pages", len(t.Pages), "apis", len(t.APIs))
}

// Targets возвращает текущие цели.
func (o *Optimizer) Targets() monitor.Targets {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.targets
}

// Run выполняет фазы оптимизации с дедлайном и отправляет одну пачку
// алертов. Ошибка возвращается вместе с частичным результатом.
func (o *Optimizer) Run(ctx context.Context) (*domain.WorkflowRunResult, error) {
	phases := o.phases(o.Targets())
	result, err := o.cfg.Orchestrator.RunWithDeadline(ctx, Purpose, phases, o.cfg.Deadline)
	if result == nil {
		return nil, err
	}

	o.cfg.Dispatcher.Dispatch(ctx, alert.Batch{
		Source:    alert.SourceOptimization,
		RunID:     result.RunID,
		Alerts:    result.Alerts,
		Timestamp: result.CompletedAt,
	})

	return result, err
}

// Phases строит фазы run по текущим целям. Фазы без целей не включаются.
func (o *Optimizer) Phases() []orchestrator.Phase {
	return o.phases(o.Targets())
}

func (o *Optimizer) phases(t monitor.Targets) []orchestrator.Phase {
	var phases []orchestrator.Phase

	seo := o.seoSteps(t)
	if len(seo) > 0 {
		phases = append(phases, orchestrator.Phase{
			Name:  PhaseSEOAudit,
			Tasks: len(seo),
			Run: func(ctx context.Context, rc *orchestrator.RunContext) (domain.PhaseResult, error) {
				rc.SetOutput(PhaseSEOAudit, OutputSitemapURL, t.Sitemap)
				return o.runPhase(ctx, rc, PhaseSEOAudit, seo, false)
			},
		})
	}

	if len(t.Pages) > 0 {
		steps := make([]engine.Step, len(t.Pages))
		for i, p := range t.Pages {
			steps[i] = probe.PageCheck(o.cfg.Fetcher, p, o.cfg.Options)
		}
		phases = append(phases, orchestrator.Phase{
			Name:  PhasePerformance,
			Tasks: len(steps),
			Run: func(ctx context.Context, rc *orchestrator.RunContext) (domain.PhaseResult, error) {
				return o.runPhase(ctx, rc, PhasePerformance, steps, true)
			},
		})
	}

	if len(t.APIs) > 0 {
		steps := make([]engine.Step, len(t.APIs))
		for i, a := range t.APIs {
			steps[i] = probe.APICheck(o.cfg.Fetcher, a, o.cfg.Options)
		}
		phases = append(phases, orchestrator.Phase{
			Name:  PhaseAPIHealth,
			Tasks: len(steps),
			Run: func(ctx context.Context, rc *orchestrator.RunContext) (domain.PhaseResult, error) {
				return o.runPhase(ctx, rc, PhaseAPIHealth, steps, false)
			},
		})
	}

	if t.Sitemap != "" && len(o.cfg.PingEndpoints) > 0 {
		phases = append(phases, orchestrator.Phase{
			Name:      PhaseIndexing,
			DependsOn: []string{PhaseSEOAudit},
			Tasks:     len(o.cfg.PingEndpoints),
			Run:       o.indexing,
		})
	}

	return phases
}

func (o *Optimizer) seoSteps(t monitor.Targets) []engine.Step {
	var steps []engine.Step
	if t.Sitemap != "" {
		steps = append(steps, probe.SitemapCheck(o.cfg.Fetcher, probe.Target{URL: t.Sitemap}, o.cfg.Options))
	}
	if t.Robots != "" {
		steps = append(steps, probe.RobotsCheck(o.cfg.Fetcher, probe.Target{URL: t.Robots}, o.cfg.Options))
	}
	return steps
}

// runPhase запускает шаги параллельно и добавляет алерты в run.
// slowAlerts — warn тоже становится алертом.
func (o *Optimizer) runPhase(ctx context.Context, rc *orchestrator.RunContext, name string, steps []engine.Step, slowAlerts bool) (domain.PhaseResult, error) {
	report, err := o.runner.RunPhase(ctx, name, steps)
	if err != nil {
		return domain.PhaseResult{}, err
	}
	addAlerts(rc, report.Checks, slowAlerts)
	return report.Result, nil
}

// indexing уведомляет поисковики о sitemap по очереди.
func (o *Optimizer) indexing(ctx context.Context, rc *orchestrator.RunContext) (domain.PhaseResult, error) {
	sitemap := rc.OutputString(PhaseSEOAudit, OutputSitemapURL)

	steps := make([]engine.Step, len(o.cfg.PingEndpoints))
	for i, endpoint := range o.cfg.PingEndpoints {
		steps[i] = probe.SitemapPing(o.cfg.Fetcher, pingName(endpoint), endpoint, sitemap, o.cfg.Options)
	}

	report, err := o.runner.RunChain(ctx, PhaseIndexing, steps)
	if err != nil {
		return domain.PhaseResult{}, err
	}
	addAlerts(rc, report.Checks, false)
	return report.Result, nil
}

func addAlerts(rc *orchestrator.RunContext, checks []domain.CheckResult, slowAlerts bool) {
	for _, c := range checks {
		switch {
		case c.Failed():
			rc.AddAlert(monitor.FormatAlert(c))
		case slowAlerts && c.Status == domain.CheckStatusWarn:
			rc.AddAlert(SlowAlert(c))
		}
	}
}

// SlowAlert — алерт о медленной странице: "slow: <name> (<ms>ms)".
func SlowAlert(c domain.CheckResult) string {
	if c.LatencyMs == nil {
		return "slow: " + c.Name
	}
	return fmt.Sprintf("slow: %s (%dms)", c.Name, *c.LatencyMs)
}

func pingName(endpoint string) string {
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		return "ping:" + u.Host
	}
	return "ping:" + endpoint
}
