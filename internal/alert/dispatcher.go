package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Sentinel/internal/telemetry"
)

const defaultSinkTimeout = 10 * time.Second

// DispatcherConfig — конфигурация Dispatcher.
type DispatcherConfig struct {
	Sinks []Sink

	// Timeout — таймаут одного sink (default: 10s).
	Timeout time.Duration

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// Dispatcher рассылает пачку во все sinks параллельно.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// NewDispatcher создаёт Dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSinkTimeout
	}

	return &Dispatcher{
		sinks:   cfg.Sinks,
		timeout: timeout,
		metrics: cfg.Metrics,
		logger:  logger,
	}
}

// Sinks возвращает имена sinks.
func (d *Dispatcher) Sinks() []string {
	names := make([]string, len(d.sinks))
	for i, s := range d.sinks {
		names[i] = s.Name()
	}
	return names
}

// Dispatch отправляет b во все sinks и ждёт их завершения.
//
// Отмена ctx вызывающего не прерывает доставку. Возвращает число
// sinks, принявших пачку.
func (d *Dispatcher) Dispatch(ctx context.Context, b Batch) int {
	if d == nil || b.Empty() {
		return 0
	}

	ctx = context.WithoutCancel(ctx)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		delivered int
	)
	for _, sink := range d.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()

			sctx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()

			err := sink.Send(sctx, b)
			d.metrics.AlertDelivery(sink.Name(), err == nil)
			if err != nil {
				d.logger.Warn("alert delivery failed",
					"sink", sink.Name(),
					"source", b.Source,
					"run_id", b.RunID,
					"alerts", len(b.Alerts),
					"error", err,
				)
				return
			}

			mu.Lock()
			delivered++
			mu.Unlock()
		}()
	}
	wg.Wait()

	d.logger.Info("alerts dispatched",
		"source", b.Source,
		"run_id", b.RunID,
		"alerts", len(b.Alerts),
		"delivered", delivered,
		"sinks", len(d.sinks),
	)
	return delivered
}
