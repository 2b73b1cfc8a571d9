package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sentinel"

// Metrics — Prometheus метрики движка.
//
// Все методы безопасны для nil-получателя: компоненты без метрик
// просто ничего не записывают.
type Metrics struct {
	stepAttempts  *prometheus.CounterVec
	checkResults  *prometheus.CounterVec
	phaseResults  *prometheus.CounterVec
	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	alertDelivery *prometheus.CounterVec
	healthOverall prometheus.Gauge
	quickLatency  prometheus.Gauge
	httpRequests  *prometheus.CounterVec
	jobRuns       *prometheus.CounterVec
}

// NewMetrics регистрирует метрики в reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		stepAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_attempts_total",
			Help:      "Step body invocations by outcome.",
		}, []string{"outcome"}),
		checkResults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_results_total",
			Help:      "Settled check results by status.",
		}, []string{"status"}),
		phaseResults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_results_total",
			Help:      "Settled phases by status.",
		}, []string{"status"}),
		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished workflow runs by purpose and outcome.",
		}, []string{"purpose", "outcome"}),
		runDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Workflow run duration.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"purpose"}),
		alertDelivery: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_batches_total",
			Help:      "Alert batch deliveries by sink and outcome.",
		}, []string{"sink", "outcome"}),
		healthOverall: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "health_overall",
			Help:      "Last overall verdict: 0 healthy, 1 degraded, 2 unhealthy.",
		}),
		quickLatency: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quick_status_latency_ms",
			Help:      "Latency of the last quick status probe.",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "API requests by method and status code.",
		}, []string{"method", "code"}),
		jobRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_jobs_total",
			Help:      "Scheduled job runs by job and outcome.",
		}, []string{"job", "outcome"}),
	}
}

// StepAttempt учитывает одну попытку шага.
// outcome: success, retry, exhausted, fatal, cancelled.
func (m *Metrics) StepAttempt(outcome string) {
	if m == nil {
		return
	}
	m.stepAttempts.WithLabelValues(outcome).Inc()
}

// CheckResult учитывает завершённую проверку.
func (m *Metrics) CheckResult(status string) {
	if m == nil {
		return
	}
	m.checkResults.WithLabelValues(status).Inc()
}

// PhaseResult учитывает завершённую фазу.
func (m *Metrics) PhaseResult(status string) {
	if m == nil {
		return
	}
	m.phaseResults.WithLabelValues(status).Inc()
}

// RunFinished учитывает завершённый run.
func (m *Metrics) RunFinished(purpose, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(purpose, outcome).Inc()
	m.runDuration.WithLabelValues(purpose).Observe(d.Seconds())
}

// AlertDelivery учитывает доставку пачки алертов в sink.
func (m *Metrics) AlertDelivery(sink string, ok bool) {
	if m == nil {
		return
	}
	m.alertDelivery.WithLabelValues(sink, outcome(ok)).Inc()
}

// HealthOverall сохраняет последний вердикт (вес статуса).
func (m *Metrics) HealthOverall(severity int) {
	if m == nil {
		return
	}
	m.healthOverall.Set(float64(severity))
}

// QuickLatency сохраняет задержку последней быстрой проверки.
func (m *Metrics) QuickLatency(ms int64) {
	if m == nil {
		return
	}
	m.quickLatency.Set(float64(ms))
}

// HTTPRequest учитывает запрос к API.
func (m *Metrics) HTTPRequest(method, code string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, code).Inc()
}

// JobRun учитывает запуск задания планировщика.
func (m *Metrics) JobRun(job string, ok bool) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, outcome(ok)).Inc()
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
