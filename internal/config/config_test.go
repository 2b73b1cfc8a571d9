package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sample = `
site:
  base_url: ${SITE_URL:-https://clinic.example.com}
  pages:
    - path: /
    - path: /appointments
      timeout: 5s
  apis:
    - path: /api/slots
      expect: [200, 204]
  sitemap: /sitemap.xml
  robots: https://cdn.example.com/robots.txt
checks:
  slow_after: 4s
  retry:
    max_attempts: 4
    backoff: exponential
optimization:
  ping_endpoints:
    - https://search.example.net/ping?sitemap=
schedule:
  health_check: "*/10 * * * *"
alerts:
  log: true
  webhooks:
    - url: https://hooks.example.com/alerts
      headers:
        Authorization: Bearer ${HOOK_TOKEN}
`

func TestParse(t *testing.T) {
	t.Setenv("HOOK_TOKEN", "secret")
	t.Setenv("HTTP_ADDR", ":9090")

	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Site.BaseURL != "https://clinic.example.com" {
		t.Errorf("default from expansion not applied: %q", cfg.Site.BaseURL)
	}
	if got := cfg.Alerts.Webhooks[0].Headers["Authorization"]; got != "Bearer secret" {
		t.Errorf("env not expanded: %q", got)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("HTTP_ADDR override not applied: %q", cfg.Server.Addr)
	}
	if cfg.Checks.SlowAfter.Duration != 4*time.Second {
		t.Errorf("unexpected slow_after %v", cfg.Checks.SlowAfter)
	}
	if cfg.Checks.QuickSlowAfter.Duration != 2*time.Second {
		t.Errorf("default quick_slow_after not applied: %v", cfg.Checks.QuickSlowAfter)
	}
	if cfg.Optimization.Deadline.Duration != 5*time.Minute {
		t.Errorf("default deadline not applied: %v", cfg.Optimization.Deadline)
	}
	if cfg.Storage.MemoryCapacity != DefaultMemoryCapacity {
		t.Errorf("default memory capacity not applied: %d", cfg.Storage.MemoryCapacity)
	}
}

func TestConfig_Targets(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	targets := cfg.Targets()
	if targets.Home != "https://clinic.example.com/" {
		t.Errorf("unexpected home %q", targets.Home)
	}
	if len(targets.Pages) != 2 || targets.Pages[1].URL != "https://clinic.example.com/appointments" {
		t.Errorf("unexpected pages %+v", targets.Pages)
	}
	if targets.Pages[1].Timeout != 5*time.Second {
		t.Errorf("page timeout not mapped: %v", targets.Pages[1].Timeout)
	}
	if len(targets.APIs) != 1 || len(targets.APIs[0].Expect) != 2 {
		t.Errorf("unexpected apis %+v", targets.APIs)
	}
	if targets.Robots != "https://cdn.example.com/robots.txt" {
		t.Errorf("absolute url must be kept, got %q", targets.Robots)
	}

	policy, err := cfg.RetryPolicy()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if policy.MaxAttempts != 4 || policy.Backoff == nil {
		t.Errorf("unexpected policy %+v", policy)
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	data := `
site:
  base_url: not-a-url
checks:
  retry:
    backoff: linear
schedule:
  optimization: "every day"
alerts:
  amqp: true
logging:
  format: xml
`
	_, err := Parse([]byte(data))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}

	for _, want := range []string{"site.base_url", "checks.retry.backoff", "schedule.optimization", "alerts.amqp", "logging.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got %v", want, err)
		}
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDuration_Invalid(t *testing.T) {
	_, err := Parse([]byte("site:\n  base_url: https://a.example\nchecks:\n  slow_after: soon\n"))
	if err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("expected invalid duration error, got %v", err)
	}
}

func TestExpandWith(t *testing.T) {
	env := map[string]string{"SET": "value", "EMPTY": ""}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	tests := []struct {
		in, want string
	}{
		{"${SET}", "value"},
		{"${SET:-fallback}", "value"},
		{"${UNSET:-fallback}", "fallback"},
		{"${UNSET}", ""},
		{"${EMPTY:-fallback}", ""},
		{"plain $SET", "plain $SET"},
	}

	for _, tt := range tests {
		if got := expandWith(tt.in, lookup); got != tt.want {
			t.Errorf("expandWith(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sentinel.yaml")
	if err := os.WriteFile(path, []byte("site:\n  base_url: https://a.example\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	changes := make(chan *Config, 1)
	w, err := NewWatcher(WatcherConfig{
		Path:     path,
		Debounce: 20 * time.Millisecond,
		OnChange: func(c *Config) { changes <- c },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Невалидная запись не должна доходить до OnChange.
	if err := os.WriteFile(path, []byte("site:\n  base_url: nope\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("site:\n  base_url: https://b.example\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-changes:
		if cfg.Site.BaseURL != "https://b.example" {
			t.Errorf("unexpected reloaded config: %q", cfg.Site.BaseURL)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
