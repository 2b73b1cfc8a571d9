package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Sentinel/internal/engine"
	"github.com/shaiso/Sentinel/internal/scheduler"
)

// Значения по умолчанию.
const (
	DefaultAddr           = ":8080"
	DefaultMemoryCapacity = 200
	DefaultMaxAttempts    = 3
)

// Load читает файл path, подставляет переменные окружения, применяет
// значения по умолчанию и проверяет результат.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse разбирает YAML и применяет окружение процесса.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}

	cfg.ApplyEnv(os.Getenv)
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv переопределяет поля переменными окружения.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Storage.DBURL, "DB_URL")
	set(&c.Broker.AMQPURL, "AMQP_URL")
	set(&c.Broker.RedisURL, "REDIS_URL")
	set(&c.Server.Addr, "HTTP_ADDR")
	set(&c.Logging.Level, "LOG_LEVEL")
	set(&c.Logging.Format, "LOG_FORMAT")
}

// ApplyDefaults заполняет незаданные поля.
func (c *Config) ApplyDefaults() {
	if c.Site.Home == "" {
		c.Site.Home = "/"
	}
	if len(c.Site.Pages) == 0 {
		c.Site.Pages = []TargetConfig{{Path: "/"}}
	}

	setDuration(&c.Checks.SlowAfter, 3*time.Second)
	setDuration(&c.Checks.QuickSlowAfter, 2*time.Second)
	setDuration(&c.Checks.RequestTimeout, 30*time.Second)
	if c.Checks.Retry.MaxAttempts == 0 {
		c.Checks.Retry.MaxAttempts = DefaultMaxAttempts
	}
	if c.Checks.Retry.Backoff == "" {
		c.Checks.Retry.Backoff = "quadratic"
	}
	setDuration(&c.Checks.Retry.Initial, time.Second)
	setDuration(&c.Checks.Retry.Max, 30*time.Second)

	setDuration(&c.Optimization.Deadline, 5*time.Minute)

	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "UTC"
	}

	setDuration(&c.Alerts.Timeout, 10*time.Second)

	if c.Storage.MemoryCapacity <= 0 {
		c.Storage.MemoryCapacity = DefaultMemoryCapacity
	}

	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	setDuration(&c.Server.ShutdownTimeout, 10*time.Second)

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

func setDuration(d *Duration, def time.Duration) {
	if d.Duration <= 0 {
		d.Duration = def
	}
}

// Validate проверяет конфигурацию и возвращает все ошибки сразу.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if u, err := url.Parse(c.Site.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		add("site.base_url: absolute http(s) url required, got %q", c.Site.BaseURL)
	}
	for i, p := range c.Site.Pages {
		if p.Path == "" {
			add("site.pages[%d].path: required", i)
		}
	}
	for i, a := range c.Site.APIs {
		if a.Path == "" {
			add("site.apis[%d].path: required", i)
		}
	}

	if c.Checks.Retry.MaxAttempts < 1 {
		add("checks.retry.max_attempts: must be at least 1")
	}
	if _, err := engine.ParseBackoff(c.Checks.Retry.Backoff, c.Checks.Retry.Initial.Duration, c.Checks.Retry.Max.Duration); err != nil {
		add("checks.retry.backoff: %w", err)
	}
	if c.Checks.Concurrency < 0 {
		add("checks.concurrency: must not be negative")
	}

	for i, e := range c.Optimization.PingEndpoints {
		if u, err := url.Parse(e); err != nil || !u.IsAbs() {
			add("optimization.ping_endpoints[%d]: absolute url required", i)
		}
	}

	for name, expr := range map[string]string{
		"schedule.health_check": c.Schedule.HealthCheck,
		"schedule.optimization": c.Schedule.Optimization,
	} {
		if expr == "" {
			continue
		}
		spec := scheduler.Spec{Cron: expr, Timezone: c.Schedule.Timezone}
		if err := spec.Validate(); err != nil {
			add("%s: %w", name, err)
		}
	}

	for i, w := range c.Alerts.Webhooks {
		if w.URL == "" {
			add("alerts.webhooks[%d].url: required", i)
		}
	}
	if c.Alerts.AMQP && c.Broker.AMQPURL == "" {
		add("alerts.amqp: requires broker.amqp_url")
	}
	if c.Alerts.RedisChannel != "" && c.Broker.RedisURL == "" {
		add("alerts.redis_channel: requires broker.redis_url")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("logging.level: expected debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		add("logging.format: expected json or text, got %q", c.Logging.Format)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
