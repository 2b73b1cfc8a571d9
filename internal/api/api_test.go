package api

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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/shaiso/Sentinel/internal/domain"
	"github.com/shaiso/Sentinel/internal/engine"
	"github.com/shaiso/Sentinel/internal/orchestrator"
	"github.com/shaiso/Sentinel/internal/repo"
	"github.com/shaiso/Sentinel/internal/telemetry"
)

var testStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeHealth struct {
	result *domain.HealthCheckResult
	err    error
	latest *domain.HealthCheckResult
	checks int
}

func (f *fakeHealth) Check(context.Context) (*domain.HealthCheckResult, error) {
	f.checks++
	if f.err != nil {
		return nil, f.err
	}
	f.latest = f.result
	return f.result, nil
}

func (f *fakeHealth) Quick(context.Context) domain.QuickStatusResult {
	return domain.QuickStatusResult{Status: domain.QuickOperational, LatencyMs: 120, CheckedAt: testStart, StatusCode: 200}
}

func (f *fakeHealth) Latest() *domain.HealthCheckResult {
	return f.latest
}

type fakeOptimizer struct {
	result  *domain.WorkflowRunResult
	err     error
	started chan struct{}
	block   chan struct{}
}

func (f *fakeOptimizer) Run(context.Context) (*domain.WorkflowRunResult, error) {
	if f.block != nil {
		f.started <- struct{}{}
		<-f.block
	}
	return f.result, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRun(id, purpose string) *domain.WorkflowRunResult {
	r := &domain.WorkflowRunResult{
		RunID:     id,
		Purpose:   purpose,
		StartedAt: testStart,
		Phases: []domain.PhaseResult{
			{Name: "seo-audit", Status: domain.PhaseStatusSuccess, TaskCount: 2},
			{Name: "performance", Status: domain.PhaseStatusPartial, TaskCount: 3, Errors: []string{"/slow: failed"}, Itemized: true},
		},
		Alerts: []string{"slow: / (4000ms)"},
	}
	r.Finalize(testStart.Add(5 * time.Second))
	return r
}

type testServer struct {
	mux    *http.ServeMux
	health *fakeHealth
	opt    *fakeOptimizer
	store  *repo.MemoryStore
	reg    *prometheus.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		mux: http.NewServeMux(),
		health: &fakeHealth{result: &domain.HealthCheckResult{
			CheckID:   "chk-1",
			Timestamp: testStart,
			Overall:   domain.OverallHealthy,
			Checks:    []domain.CheckResult{domain.Pass("/", 200*time.Millisecond)},
		}},
		opt:   &fakeOptimizer{result: testRun("optimization_1_a", "optimization")},
		store: repo.NewMemoryStore(10),
		reg:   prometheus.NewRegistry(),
	}

	h := NewHandler(Config{
		Health:    ts.health,
		Optimizer: ts.opt,
		Store:     ts.store,
		Metrics:   telemetry.NewMetrics(ts.reg),
		Logger:    discardLogger(),
	})
	h.RegisterRoutes(ts.mux)
	return ts
}

func (ts *testServer) do(method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

type envelope[T any] struct {
	Data  T           `json:"data"`
	Error ErrorDetail `json:"error"`
	Total int         `json:"total"`
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/v1/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}

	body := decode[envelope[domain.QuickStatusResult]](t, rec)
	if body.Data.Status != domain.QuickOperational || body.Data.LatencyMs != 120 {
		t.Errorf("unexpected status %+v", body.Data)
	}
}

func TestHealth_LatestFallsBackToStore(t *testing.T) {
	ts := newTestServer(t)

	if rec := ts.do(http.MethodGet, "/api/v1/health"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any check, got %d", rec.Code)
	}

	stored := &domain.HealthCheckResult{CheckID: "chk-stored", Timestamp: testStart, Overall: domain.OverallDegraded}
	if err := ts.store.SaveHealth(context.Background(), stored); err != nil {
		t.Fatalf("save health: %v", err)
	}

	rec := ts.do(http.MethodGet, "/api/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decode[envelope[domain.HealthCheckResult]](t, rec).Data.CheckID; got != "chk-stored" {
		t.Errorf("expected stored check, got %s", got)
	}
}

func TestHealth_RunCheck(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/v1/health/checks")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if got := decode[envelope[domain.HealthCheckResult]](t, rec).Data.Overall; got != domain.OverallHealthy {
		t.Errorf("unexpected overall %s", got)
	}

	// Свежая проверка видна без обращения к истории.
	rec = ts.do(http.MethodGet, "/api/v1/health")
	if got := decode[envelope[domain.HealthCheckResult]](t, rec).Data.CheckID; got != "chk-1" {
		t.Errorf("expected latest check chk-1, got %s", got)
	}
}

func TestHealth_RunCheckErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"cancelled", engine.ErrStepCancelled, http.StatusServiceUnavailable},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.health.err = tt.err

			rec := ts.do(http.MethodPost, "/api/v1/health/checks")
			if rec.Code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, rec.Code)
			}
			if strings.Contains(rec.Body.String(), "boom") {
				t.Error("internal error text must not leak")
			}
		})
	}
}

func TestOptimization(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/v1/optimizations")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	run := decode[envelope[domain.WorkflowRunResult]](t, rec).Data
	if run.RunID != "optimization_1_a" || run.Summary.Failed != 1 || run.Summary.Successful != 4 {
		t.Errorf("unexpected run %+v", run)
	}
}

func TestOptimization_AbortedReturnsPartialResult(t *testing.T) {
	ts := newTestServer(t)
	partial := testRun("optimization_2_b", "optimization")
	partial.Aborted = true
	partial.Error = "fatal: database unreachable"
	ts.opt.result = partial
	ts.opt.err = engine.Fatal("database unreachable")

	rec := ts.do(http.MethodPost, "/api/v1/optimizations")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	body := decode[envelope[domain.WorkflowRunResult]](t, rec)
	if body.Error.Code != ErrCodeRunAborted {
		t.Errorf("unexpected error code %s", body.Error.Code)
	}
	if body.Data.RunID != "optimization_2_b" || !body.Data.Aborted {
		t.Errorf("expected partial result, got %+v", body.Data)
	}
}

func TestOptimization_NotStarted(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  ErrorCode
	}{
		{"no targets", fmt.Errorf("build plan: %w", orchestrator.ErrNoPhases), http.StatusServiceUnavailable, ErrCodeUnavailable},
		{"invalid plan", fmt.Errorf("build plan: %w", orchestrator.NewValidationError("indexing", "depends_on", "unknown phase seo", orchestrator.ErrUnknownDependency)), http.StatusUnprocessableEntity, ErrCodeInvalidPlan},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable, ErrCodeUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.opt.result = nil
			ts.opt.err = tt.err

			rec := ts.do(http.MethodPost, "/api/v1/optimizations")
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			body := decode[envelope[json.RawMessage]](t, rec)
			if body.Error.Code != tt.wantErr {
				t.Errorf("expected code %s, got %s", tt.wantErr, body.Error.Code)
			}
			if len(body.Data) != 0 {
				t.Errorf("expected no data, got %s", body.Data)
			}
		})
	}
}

func TestOptimization_Conflict(t *testing.T) {
	ts := newTestServer(t)
	ts.opt.started = make(chan struct{}, 1)
	ts.opt.block = make(chan struct{})

	done := make(chan int)
	go func() {
		done <- ts.do(http.MethodPost, "/api/v1/optimizations").Code
	}()
	<-ts.opt.started

	if rec := ts.do(http.MethodPost, "/api/v1/optimizations"); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 while a run is in flight, got %d", rec.Code)
	}

	close(ts.opt.block)
	if code := <-done; code != http.StatusCreated {
		t.Errorf("first request: expected 201, got %d", code)
	}
}

func TestRuns(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	for _, r := range []*domain.WorkflowRunResult{
		testRun("optimization_1_a", "optimization"),
		testRun("health_2_b", "health"),
	} {
		if err := ts.store.SaveRun(ctx, r); err != nil {
			t.Fatalf("save run: %v", err)
		}
	}

	rec := ts.do(http.MethodGet, "/api/v1/runs?purpose=optimization")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	list := decode[envelope[[]RunSummaryResponse]](t, rec)
	if list.Total != 1 || list.Data[0].RunID != "optimization_1_a" {
		t.Fatalf("unexpected list %+v", list)
	}
	if item := list.Data[0]; item.Outcome != "partial" || item.AlertCount != 1 || item.PhaseCount != 2 {
		t.Errorf("unexpected summary %+v", item)
	}

	if rec := ts.do(http.MethodGet, "/api/v1/runs?limit=abc"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", rec.Code)
	}

	rec = ts.do(http.MethodGet, "/api/v1/runs/health_2_b")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decode[envelope[domain.WorkflowRunResult]](t, rec).Data.Purpose; got != "health" {
		t.Errorf("unexpected purpose %s", got)
	}

	rec = ts.do(http.MethodGet, "/api/v1/runs/missing")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if got := decode[envelope[any]](t, rec).Error.Code; got != ErrCodeNotFound {
		t.Errorf("unexpected error code %s", got)
	}
}

func TestMiddleware_RecoveryAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	logger := discardLogger()

	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("handler exploded")
	})
	h := Chain(Recovery(logger), Logging(logger, metrics))(panicking)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}

	notFound := Chain(Logging(logger, metrics))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFound(w, "nope")
	}))
	notFound.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/y", nil))

	got, err := testutil.GatherAndCount(reg, "sentinel_api_requests_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got != 1 {
		t.Errorf("expected one request series (GET 404), got %d", got)
	}
}
