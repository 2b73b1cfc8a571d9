package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Sentinel/internal/alert"
	"github.com/shaiso/Sentinel/internal/api"
	"github.com/shaiso/Sentinel/internal/config"
	"github.com/shaiso/Sentinel/internal/engine"
	"github.com/shaiso/Sentinel/internal/monitor"
	"github.com/shaiso/Sentinel/internal/mq"
	"github.com/shaiso/Sentinel/internal/notify"
	"github.com/shaiso/Sentinel/internal/optimize"
	"github.com/shaiso/Sentinel/internal/orchestrator"
	"github.com/shaiso/Sentinel/internal/probe"
	"github.com/shaiso/Sentinel/internal/repo"
	"github.com/shaiso/Sentinel/internal/scheduler"
	"github.com/shaiso/Sentinel/internal/telemetry"
)

const connectTimeout = 10 * time.Second

// daemon — собранные компоненты sentinel-monitor.
type daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	registry *prometheus.Registry
	metrics  *telemetry.Metrics

	store     repo.Store
	monitor   *monitor.Monitor
	optimizer *optimize.Optimizer
	scheduler *scheduler.Scheduler
	consumer  *mq.Consumer
	watcher   *config.Watcher
	server    *http.Server

	closers []func()
}

// newDaemon подключает хранилище и брокеры и собирает компоненты.
// При ошибке уже открытые соединения закрываются.
func newDaemon(ctx context.Context, cfg *config.Config, configPath string, logger *slog.Logger) (_ *daemon, err error) {
	d := &daemon{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	defer func() {
		if err != nil {
			d.close()
		}
	}()

	d.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	d.metrics = telemetry.NewMetrics(d.registry)

	if err := d.openStore(ctx); err != nil {
		return nil, err
	}

	var notifiers orchestrator.Notifiers
	sinks, err := d.webhookSinks()
	if err != nil {
		return nil, err
	}
	if cfg.Alerts.Log {
		sinks = append(sinks, alert.NewLogSink(logger))
	}

	var (
		conn      *mq.Connection
		publisher *mq.Publisher
	)
	if cfg.Broker.AMQPURL != "" {
		conn, err = d.openAMQP()
		if err != nil {
			return nil, err
		}
		publisher = mq.NewPublisher(conn, logger)
		if cfg.Alerts.AMQP {
			sinks = append(sinks, alert.NewAMQPSink(publisher))
		}
		notifiers = append(notifiers, mq.NewRunNotifier(publisher))
	}

	if cfg.Broker.RedisURL != "" {
		client, err := d.openRedis(ctx)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, alert.NewRedisSink(client, cfg.Alerts.RedisChannel))
	}

	if cfg.Callback.URL != "" {
		hook, err := notify.NewWebhook(webhookConfig(cfg.Callback, "callback"))
		if err != nil {
			return nil, fmt.Errorf("callback: %w", err)
		}
		notifiers = append(notifiers, notify.NewCallback(hook))
	}

	dispatcher := alert.NewDispatcher(alert.DispatcherConfig{
		Sinks:   sinks,
		Timeout: cfg.Alerts.Timeout.Duration,
		Metrics: d.metrics,
		Logger:  logger,
	})

	if err := d.buildWorkflows(cfg, dispatcher, notifiers); err != nil {
		return nil, err
	}

	if err := d.buildScheduler(); err != nil {
		return nil, err
	}

	if conn != nil {
		d.consumer = mq.NewConsumer(conn, mq.ConsumerConfig{
			Queue:   mq.QueueRunRequests,
			Handler: runRequestHandler(d.checkJob, d.optimizeJob, logger),
			Logger:  logger,
		})
	}

	if configPath != "" {
		watcher, werr := config.NewWatcher(config.WatcherConfig{
			Path:     configPath,
			OnChange: d.applyConfig,
			Logger:   logger,
		})
		if werr != nil {
			logger.Warn("config hot reload disabled", "error", werr)
		} else {
			d.watcher = watcher
		}
	}

	d.server = &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: d.routes(),
	}

	logger.Info("daemon assembled",
		"site", cfg.Site.BaseURL,
		"sinks", len(sinks),
		"notifiers", len(notifiers),
		"amqp", conn != nil,
		"store", fmt.Sprintf("%T", d.store),
	)
	return d, nil
}

func (d *daemon) openStore(ctx context.Context) error {
	if d.cfg.Storage.DBURL == "" {
		d.store = repo.NewMemoryStore(d.cfg.Storage.MemoryCapacity)
		d.logger.Info("using in-memory history", "capacity", d.cfg.Storage.MemoryCapacity)
		return nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := repo.NewPool(connectCtx, d.cfg.Storage.DBURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	d.closers = append(d.closers, pool.Close)

	if err := repo.EnsureSchema(connectCtx, pool); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	d.store = repo.NewPostgresStore(pool)
	d.logger.Info("connected to database")
	return nil
}

func (d *daemon) openAMQP() (*mq.Connection, error) {
	conn, err := mq.Dial(mq.ConnectionConfig{URL: d.cfg.Broker.AMQPURL, Logger: d.logger})
	if err != nil {
		return nil, fmt.Errorf("connect to amqp: %w", err)
	}
	d.closers = append(d.closers, func() {
		if err := conn.Close(); err != nil {
			d.logger.Warn("failed to close amqp connection", "error", err)
		}
	})

	if err := mq.SetupTopology(conn); err != nil {
		return nil, fmt.Errorf("setup amqp topology: %w", err)
	}

	d.logger.Info("connected to amqp")
	return conn, nil
}

func (d *daemon) openRedis(ctx context.Context) (*redis.Client, error) {
	opts, err := redis.ParseURL(d.cfg.Broker.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	d.closers = append(d.closers, func() { client.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	// Недоступный Redis не мешает старту: sink будет ошибаться при доставке.
	if err := client.Ping(pingCtx).Err(); err != nil {
		d.logger.Warn("redis is not reachable", "error", err)
	} else {
		d.logger.Info("connected to redis")
	}
	return client, nil
}

func (d *daemon) webhookSinks() ([]alert.Sink, error) {
	sinks := make([]alert.Sink, 0, len(d.cfg.Alerts.Webhooks))
	for i, wc := range d.cfg.Alerts.Webhooks {
		hook, err := notify.NewWebhook(webhookConfig(wc, fmt.Sprintf("alerts-%d", i)))
		if err != nil {
			return nil, fmt.Errorf("alerts.webhooks[%d]: %w", i, err)
		}
		sinks = append(sinks, alert.NewWebhookSink(hook))
	}
	return sinks, nil
}

func webhookConfig(wc config.WebhookConfig, name string) notify.WebhookConfig {
	return notify.WebhookConfig{
		URL:     wc.URL,
		Headers: wc.Headers,
		Timeout: wc.Timeout.Duration,
		Name:    name,
	}
}

func (d *daemon) buildWorkflows(cfg *config.Config, dispatcher *alert.Dispatcher, notifiers orchestrator.Notifiers) error {
	opts, err := cfg.ProbeOptions()
	if err != nil {
		return fmt.Errorf("probe options: %w", err)
	}

	executor := engine.NewExecutor(engine.ExecutorConfig{Metrics: d.metrics, Logger: d.logger})
	fanout := engine.NewFanOut(engine.FanOutConfig{
		Executor: executor,
		Limit:    cfg.Checks.Concurrency,
		Logger:   d.logger,
	})
	fetcher := probe.NewHTTPFetcher(probe.HTTPFetcherConfig{Timeout: cfg.Checks.RequestTimeout.Duration})
	targets := cfg.Targets()

	d.monitor = monitor.New(monitor.Config{
		Targets:        targets,
		Fetcher:        fetcher,
		FanOut:         fanout,
		Options:        opts,
		QuickSlowAfter: cfg.Checks.QuickSlowAfter.Duration,
		Dispatcher:     dispatcher,
		Recorder:       d.store,
		Metrics:        d.metrics,
		Logger:         d.logger,
	})

	d.optimizer = optimize.New(optimize.Config{
		Targets:       targets,
		PingEndpoints: cfg.Optimization.PingEndpoints,
		Fetcher:       fetcher,
		Runner:        engine.NewPhaseRunner(engine.PhaseRunnerConfig{FanOut: fanout, Logger: d.logger}),
		Options:       opts,
		Orchestrator: orchestrator.New(orchestrator.Config{
			Notifier: notifiers,
			Recorder: d.store,
			Metrics:  d.metrics,
			Logger:   d.logger,
		}),
		Deadline:   cfg.Optimization.Deadline.Duration,
		Dispatcher: dispatcher,
		Logger:     d.logger,
	})
	return nil
}

func (d *daemon) buildScheduler() error {
	var jobs []scheduler.Job
	tz := d.cfg.Schedule.Timezone

	if expr := d.cfg.Schedule.HealthCheck; expr != "" {
		jobs = append(jobs, scheduler.Job{
			Name: "health-check",
			Spec: scheduler.Spec{Cron: expr, Timezone: tz},
			Run:  d.checkJob,
		})
	}
	if expr := d.cfg.Schedule.Optimization; expr != "" {
		jobs = append(jobs, scheduler.Job{
			Name: "optimization",
			Spec: scheduler.Spec{Cron: expr, Timezone: tz},
			Run:  d.optimizeJob,
		})
	}

	s, err := scheduler.New(scheduler.Config{Jobs: jobs, Metrics: d.metrics, Logger: d.logger})
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	d.scheduler = s
	return nil
}

func (d *daemon) checkJob(ctx context.Context) error {
	_, err := d.monitor.Check(ctx)
	return err
}

func (d *daemon) optimizeJob(ctx context.Context) error {
	_, err := d.optimizer.Run(ctx)
	return err
}

// applyConfig применяет перечитанный файл. Меняются только цели проверок;
// остальное требует перезапуска.
func (d *daemon) applyConfig(cfg *config.Config) {
	targets := cfg.Targets()
	d.monitor.SetTargets(targets)
	d.optimizer.SetTargets(targets)
	d.logger.Info("targets reloaded",
		"pages", len(targets.Pages),
		"apis", len(targets.APIs),
	)
}

func (d *daemon) routes() http.Handler {
	startTime := time.Now()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime).Round(time.Second))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{}))

	api.NewHandler(api.Config{
		Health:    d.monitor,
		Optimizer: d.optimizer,
		Store:     d.store,
		Metrics:   d.metrics,
		Logger:    d.logger,
	}).RegisterRoutes(mux)

	return mux
}

// run запускает API, планировщик, consumer и watcher до отмены ctx.
func (d *daemon) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d.logger.Info("listening", "addr", d.server.Addr)
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.Server.ShutdownTimeout.Duration)
		defer cancel()

		if err := d.server.Shutdown(shutdownCtx); err != nil {
			d.logger.Error("shutdown error", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		return ignoreCanceled(d.scheduler.Run(ctx))
	})

	if d.consumer != nil {
		g.Go(func() error {
			return ignoreCanceled(d.consumer.Run(ctx))
		})
	}

	if d.watcher != nil {
		g.Go(func() error {
			return ignoreCanceled(d.watcher.Run(ctx))
		})
	}

	return g.Wait()
}

// close освобождает соединения в обратном порядке.
func (d *daemon) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
