package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Sentinel/internal/engine"
	"github.com/shaiso/Sentinel/internal/monitor"
	"github.com/shaiso/Sentinel/internal/probe"
)

// Duration — time.Duration, записанная в YAML строкой ("3s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML разбирает строку длительности.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML записывает длительность строкой.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Config — конфигурация Sentinel.
type Config struct {
	Site         SiteConfig         `yaml:"site"`
	Checks       ChecksConfig       `yaml:"checks"`
	Optimization OptimizationConfig `yaml:"optimization"`
	Schedule     ScheduleConfig     `yaml:"schedule"`
	Alerts       AlertsConfig       `yaml:"alerts"`
	Callback     WebhookConfig      `yaml:"callback"`
	Storage      StorageConfig      `yaml:"storage"`
	Broker       BrokerConfig       `yaml:"broker"`
	Server       ServerConfig       `yaml:"server"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// SiteConfig — проверяемый сайт. Пути разрешаются относительно BaseURL.
type SiteConfig struct {
	BaseURL string         `yaml:"base_url"`
	Home    string         `yaml:"home"`
	Pages   []TargetConfig `yaml:"pages"`
	APIs    []TargetConfig `yaml:"apis"`
	Sitemap string         `yaml:"sitemap"`
	Robots  string         `yaml:"robots"`
}

// TargetConfig — страница или API endpoint.
type TargetConfig struct {
	Name    string   `yaml:"name,omitempty"`
	Path    string   `yaml:"path"`
	Method  string   `yaml:"method,omitempty"`
	Timeout Duration `yaml:"timeout,omitempty"`
	Expect  []int    `yaml:"expect,omitempty"`
}

// ChecksConfig — параметры шагов проверки.
type ChecksConfig struct {
	SlowAfter      Duration    `yaml:"slow_after"`
	QuickSlowAfter Duration    `yaml:"quick_slow_after"`
	RequestTimeout Duration    `yaml:"request_timeout"`
	Concurrency    int         `yaml:"concurrency"`
	Retry          RetryConfig `yaml:"retry"`
}

// RetryConfig — политика повторов шагов.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`

	// Backoff: quadratic, exponential или fixed.
	Backoff string   `yaml:"backoff"`
	Initial Duration `yaml:"initial"`
	Max     Duration `yaml:"max"`
}

// OptimizationConfig — параметры run оптимизации.
type OptimizationConfig struct {
	Deadline      Duration `yaml:"deadline"`
	PingEndpoints []string `yaml:"ping_endpoints"`
}

// ScheduleConfig — периодические задания. Пустое выражение отключает задание.
type ScheduleConfig struct {
	Timezone     string `yaml:"timezone"`
	HealthCheck  string `yaml:"health_check"`
	Optimization string `yaml:"optimization"`
}

// AlertsConfig — куда доставлять алерты.
type AlertsConfig struct {
	Timeout      Duration        `yaml:"timeout"`
	Log          bool            `yaml:"log"`
	Webhooks     []WebhookConfig `yaml:"webhooks"`
	AMQP         bool            `yaml:"amqp"`
	RedisChannel string          `yaml:"redis_channel"`
}

// WebhookConfig — HTTP получатель.
type WebhookConfig struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
}

// StorageConfig — история проверок и runs.
type StorageConfig struct {
	// DBURL — PostgreSQL; пусто — история в памяти.
	DBURL string `yaml:"db_url"`

	// MemoryCapacity — размер истории в памяти.
	MemoryCapacity int `yaml:"memory_capacity"`
}

// BrokerConfig — внешние брокеры; пустой URL отключает брокер.
type BrokerConfig struct {
	AMQPURL  string `yaml:"amqp_url"`
	RedisURL string `yaml:"redis_url"`
}

// ServerConfig — HTTP API.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig — параметры логгера.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Resolve разрешает path относительно BaseURL. Абсолютный URL не меняется.
func (s SiteConfig) Resolve(path string) string {
	if path == "" {
		return ""
	}
	ref, err := url.Parse(path)
	if err != nil || ref.IsAbs() {
		return path
	}
	base, err := url.Parse(strings.TrimRight(s.BaseURL, "/") + "/")
	if err != nil {
		return path
	}
	return base.ResolveReference(ref).String()
}

func (s SiteConfig) targets(in []TargetConfig) []probe.Target {
	out := make([]probe.Target, len(in))
	for i, t := range in {
		out[i] = probe.Target{
			Name:    t.Name,
			URL:     s.Resolve(t.Path),
			Method:  t.Method,
			Timeout: t.Timeout.Duration,
			Expect:  t.Expect,
		}
	}
	return out
}

// Targets строит цели монитора.
func (c *Config) Targets() monitor.Targets {
	return monitor.Targets{
		Home:    c.Site.Resolve(c.Site.Home),
		Pages:   c.Site.targets(c.Site.Pages),
		APIs:    c.Site.targets(c.Site.APIs),
		Sitemap: c.Site.Resolve(c.Site.Sitemap),
		Robots:  c.Site.Resolve(c.Site.Robots),
	}
}

// RetryPolicy строит политику повторов шагов.
func (c *Config) RetryPolicy() (engine.RetryPolicy, error) {
	r := c.Checks.Retry
	backoff, err := engine.ParseBackoff(r.Backoff, r.Initial.Duration, r.Max.Duration)
	if err != nil {
		return engine.RetryPolicy{}, err
	}
	return engine.RetryPolicy{MaxAttempts: r.MaxAttempts, Backoff: backoff}, nil
}

// ProbeOptions строит параметры шагов проверки.
func (c *Config) ProbeOptions() (probe.Options, error) {
	policy, err := c.RetryPolicy()
	if err != nil {
		return probe.Options{}, err
	}
	return probe.Options{
		SlowAfter: c.Checks.SlowAfter.Duration,
		RetryBase: c.Checks.Retry.Initial.Duration,
		Policy:    policy,
	}, nil
}
