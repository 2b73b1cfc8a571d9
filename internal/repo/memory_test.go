package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shaiso/Sentinel/internal/domain"
)

var testStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func testRun(i int, purpose string) *domain.WorkflowRunResult {
	return &domain.WorkflowRunResult{
		RunID:     fmt.Sprintf("%s_%d_0000000%d", purpose, i, i%10),
		Purpose:   purpose,
		StartedAt: testStart.Add(time.Duration(i) * time.Minute),
		Phases:    []domain.PhaseResult{{Name: "p", Status: domain.PhaseStatusSuccess, TaskCount: 1}},
	}
}

// Store должен реализовываться обоими хранилищами.
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

func TestMemoryStore_Runs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)

	for i := range 4 {
		purpose := "optimization"
		if i%2 == 1 {
			purpose = "health"
		}
		if err := s.SaveRun(ctx, testRun(i, purpose)); err != nil {
			t.Fatalf("save run %d: %v", i, err)
		}
	}

	all, err := s.ListRuns(ctx, RunFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 4 || all[0].RunID != testRun(3, "health").RunID {
		t.Errorf("expected newest first, got %d runs starting with %s", len(all), all[0].RunID)
	}

	opt, _ := s.ListRuns(ctx, RunFilter{Purpose: "optimization", Limit: 1})
	if len(opt) != 1 || opt[0].RunID != testRun(2, "optimization").RunID {
		t.Errorf("unexpected filtered runs: %+v", opt)
	}

	got, err := s.GetRun(ctx, testRun(1, "health").RunID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got.Phases[0].Name = "mutated"
	again, _ := s.GetRun(ctx, got.RunID)
	if again.Phases[0].Name != "p" {
		t.Error("GetRun must return a copy")
	}
}

func TestMemoryStore_Errors(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)

	if _, err := s.GetRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.LatestHealth(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	run := testRun(1, "health")
	_ = s.SaveRun(ctx, run)
	if err := s.SaveRun(ctx, run); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestMemoryStore_Eviction(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(3)

	for i := range 5 {
		_ = s.SaveRun(ctx, testRun(i, "health"))
	}

	runs, _ := s.ListRuns(ctx, RunFilter{Limit: 10})
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs after eviction, got %d", len(runs))
	}
	if _, err := s.GetRun(ctx, testRun(0, "health").RunID); !errors.Is(err, ErrNotFound) {
		t.Errorf("oldest run must be evicted, got %v", err)
	}
}

func TestMemoryStore_Health(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)

	for i, overall := range []domain.OverallStatus{domain.OverallHealthy, domain.OverallDegraded, domain.OverallUnhealthy} {
		err := s.SaveHealth(ctx, &domain.HealthCheckResult{
			CheckID:   fmt.Sprintf("c%d", i),
			Timestamp: testStart.Add(time.Duration(i) * time.Minute),
			Overall:   overall,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	latest, err := s.LatestHealth(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.CheckID != "c2" || latest.Overall != domain.OverallUnhealthy {
		t.Errorf("unexpected latest: %+v", latest)
	}
}

func TestMemoryStore_HealthIsolated(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(4)

	in := &domain.HealthCheckResult{
		CheckID: "c1",
		Overall: domain.OverallUnhealthy,
		Checks: []domain.CheckResult{
			domain.Pass("/", 500*time.Millisecond),
			domain.Fail("/services", "HTTP 503"),
		},
		Alerts: []string{"down: /services"},
	}
	if err := s.SaveHealth(ctx, in); err != nil {
		t.Fatal(err)
	}

	// Изменения у вызывающего не попадают в хранилище.
	in.Checks[0].Name = "mutated"
	*in.Checks[0].LatencyMs = 1
	in.Alerts[0] = "mutated"

	got, err := s.LatestHealth(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Checks[0].Name != "/" || *got.Checks[0].LatencyMs != 500 || got.Alerts[0] != "down: /services" {
		t.Fatalf("stored result shares memory with caller: %+v", got)
	}

	// И наоборот: изменения прочитанного результата не меняют хранилище.
	got.Checks[1].Status = domain.CheckStatusPass
	got.Alerts[0] = "mutated"

	again, _ := s.LatestHealth(ctx)
	if again.Checks[1].Status != domain.CheckStatusFail || again.Alerts[0] != "down: /services" {
		t.Errorf("returned result shares memory with store: %+v", again)
	}
}

func TestMemoryStore_RunIsolated(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(4)

	run := testRun(1, "optimization")
	run.Phases = []domain.PhaseResult{{Name: "performance", Status: domain.PhaseStatusPartial, Errors: []string{"slow"}}}
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatal(err)
	}
	run.Phases[0].Errors[0] = "mutated"

	got, err := s.GetRun(ctx, run.RunID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Phases[0].Errors[0] != "slow" {
		t.Errorf("phase errors share memory with caller: %v", got.Phases[0].Errors)
	}
}

func TestRunFilter_Limit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultListLimit},
		{-5, DefaultListLimit},
		{7, 7},
		{MaxListLimit + 1, MaxListLimit},
	}
	for _, tt := range tests {
		if got := (RunFilter{Limit: tt.in}).limit(); got != tt.want {
			t.Errorf("limit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
