package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shaiso/Sentinel/internal/config"
	"github.com/shaiso/Sentinel/internal/domain"
	"github.com/shaiso/Sentinel/internal/mq"
	"github.com/shaiso/Sentinel/internal/repo"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func requestMessage(t *testing.T, purpose string) *mq.Message {
	t.Helper()
	msg, err := mq.NewMessage(mq.MessageTypeRunRequested, mq.RunRequestedPayload{Purpose: purpose, RequestedBy: "test"}, time.Now())
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	return msg
}

func TestRunRequestHandler(t *testing.T) {
	var checks, optimizations int
	checkFn := func(context.Context) error { checks++; return nil }
	optimizeFn := func(context.Context) error { optimizations++; return errors.New("fatal: deadline") }

	handle := runRequestHandler(checkFn, optimizeFn, discardLogger())
	ctx := context.Background()

	if err := handle(ctx, requestMessage(t, "health")); err != nil {
		t.Errorf("health: unexpected error %v", err)
	}
	// Неудачный run подтверждается: его итог уже в истории.
	if err := handle(ctx, requestMessage(t, "optimization")); err != nil {
		t.Errorf("optimization: failed run must be acked, got %v", err)
	}
	if checks != 1 || optimizations != 1 {
		t.Errorf("expected one run each, got checks=%d optimizations=%d", checks, optimizations)
	}

	if err := handle(ctx, requestMessage(t, "deploy")); !errors.Is(err, mq.ErrPermanent) {
		t.Errorf("unknown purpose must be permanent, got %v", err)
	}

	wrongType := requestMessage(t, "health")
	wrongType.Type = mq.MessageTypeAlertBatch
	if err := handle(ctx, wrongType); !errors.Is(err, mq.ErrPermanent) {
		t.Errorf("wrong type must be permanent, got %v", err)
	}
}

func TestRunRequestHandler_RequeueOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	checkFn := func(context.Context) error {
		cancel()
		return context.Canceled
	}

	handle := runRequestHandler(checkFn, nil, discardLogger())
	err := handle(ctx, requestMessage(t, "health"))
	if !errors.Is(err, context.Canceled) || errors.Is(err, mq.ErrPermanent) {
		t.Errorf("interrupted run must be requeued, got %v", err)
	}
}

func testConfig(t *testing.T, site string) *config.Config {
	t.Helper()
	for _, key := range []string{"DB_URL", "AMQP_URL", "REDIS_URL", "HTTP_ADDR", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(key, "")
	}

	cfg, err := config.Parse([]byte(fmt.Sprintf(`
site:
  base_url: %s
  pages:
    - path: /
    - path: /services
  sitemap: /sitemap.xml
optimization:
  deadline: 10s
`, site)))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	return cfg
}

func TestDaemon_InMemory(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sitemap.xml":
			w.Write([]byte(`<urlset><url><loc>/</loc></url></urlset>`))
		default:
			w.Write([]byte("ok"))
		}
	}))
	defer site.Close()

	d, err := newDaemon(context.Background(), testConfig(t, site.URL), "", discardLogger())
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	defer d.close()

	if _, ok := d.store.(*repo.MemoryStore); !ok {
		t.Errorf("expected memory store without DB_URL, got %T", d.store)
	}
	if d.consumer != nil || d.watcher != nil {
		t.Error("consumer and watcher must be disabled")
	}

	apiSrv := httptest.NewServer(d.server.Handler)
	defer apiSrv.Close()

	resp, err := http.Post(apiSrv.URL+"/api/v1/health/checks", "application/json", nil)
	if err != nil {
		t.Fatalf("run check: %v", err)
	}
	var body struct {
		Data domain.HealthCheckResult `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if body.Data.Overall != domain.OverallHealthy || len(body.Data.Checks) != 3 {
		t.Errorf("unexpected health result %+v", body.Data)
	}

	if _, err := d.store.LatestHealth(context.Background()); err != nil {
		t.Errorf("health check must be recorded: %v", err)
	}

	if err := d.optimizeJob(context.Background()); err != nil {
		t.Fatalf("optimization: %v", err)
	}
	runs, err := d.store.ListRuns(context.Background(), repo.RunFilter{Purpose: "optimization"})
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one recorded run, got %d (%v)", len(runs), err)
	}

	for path, want := range map[string]string{
		"/healthz": "ok",
		"/metrics": "sentinel_api_requests_total",
	} {
		resp, err := http.Get(apiSrv.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if !strings.Contains(string(data), want) {
			t.Errorf("%s: expected %q in body", path, want)
		}
	}
}

func TestDaemon_ApplyConfig(t *testing.T) {
	d, err := newDaemon(context.Background(), testConfig(t, "https://clinic.example.com"), "", discardLogger())
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	defer d.close()

	next := testConfig(t, "https://clinic.example.com")
	next.Site.Pages = append(next.Site.Pages, config.TargetConfig{Path: "/contact"})
	d.applyConfig(next)

	if got := len(d.monitor.Targets().Pages); got != 3 {
		t.Errorf("expected 3 pages after reload, got %d", got)
	}
}

func TestDaemon_InvalidSchedule(t *testing.T) {
	cfg := testConfig(t, "https://clinic.example.com")
	cfg.Schedule.HealthCheck = "not a cron"

	if _, err := newDaemon(context.Background(), cfg, "", discardLogger()); err == nil {
		t.Fatal("expected scheduler error")
	}
}
