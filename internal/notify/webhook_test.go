package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shaiso/Sentinel/internal/domain"
)

func TestWebhook_Post(t *testing.T) {
	var got map[string]any
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %s", ct)
		}
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	wh, err := NewWebhook(WebhookConfig{URL: server.URL, Headers: map[string]string{"Authorization": "Bearer t"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := wh.Post(context.Background(), map[string]string{"hello": "world"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["hello"] != "world" {
		t.Errorf("unexpected body: %v", got)
	}
	if auth != "Bearer t" {
		t.Errorf("expected custom header, got %q", auth)
	}
}

func TestWebhook_NoRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	wh, _ := NewWebhook(WebhookConfig{URL: server.URL})
	err := wh.Post(context.Background(), struct{}{})

	var se *StatusError
	if !errors.As(err, &se) || se.Code != 500 {
		t.Fatalf("expected StatusError 500, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected exactly one attempt, got %d", calls.Load())
	}
}

func TestWebhook_CircuitOpens(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	wh, _ := NewWebhook(WebhookConfig{URL: server.URL, MaxFailures: 2, OpenTimeout: time.Hour})

	for range 2 {
		_ = wh.Post(context.Background(), struct{}{})
	}

	err := wh.Post(context.Background(), struct{}{})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("open circuit must not send requests, got %d calls", calls.Load())
	}
	if wh.State() != "open" {
		t.Errorf("expected open state, got %s", wh.State())
	}
}

func TestWebhook_ClientErrorsDoNotTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	wh, _ := NewWebhook(WebhookConfig{URL: server.URL, MaxFailures: 1})
	for range 3 {
		err := wh.Post(context.Background(), struct{}{})
		if errors.Is(err, ErrCircuitOpen) {
			t.Fatal("4xx must not open the circuit")
		}
	}
}

func TestNewWebhook_RequiresURL(t *testing.T) {
	if _, err := NewWebhook(WebhookConfig{}); !errors.Is(err, ErrNoURL) {
		t.Errorf("expected ErrNoURL, got %v", err)
	}
}

func TestCallback_Notify(t *testing.T) {
	var event RunCompletedEvent
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&event)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	wh, _ := NewWebhook(WebhookConfig{URL: server.URL})
	cb := NewCallback(wh)

	result := &domain.WorkflowRunResult{
		RunID:      "optimization_1_abcd1234",
		Purpose:    "optimization",
		DurationMs: 1500,
		Phases:     []domain.PhaseResult{{Name: "seo-audit", Status: domain.PhaseStatusSuccess, TaskCount: 2}},
		Summary:    domain.Summary{TotalTasks: 2, Successful: 2},
		Alerts:     []string{"slow: /appointments"},
	}

	if err := cb.Notify(context.Background(), result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.EventType != "run_completed" || event.RunID != result.RunID {
		t.Errorf("unexpected event: %+v", event)
	}
	if event.Outcome != "success" || event.AlertCount != 1 || event.Summary.Successful != 2 {
		t.Errorf("unexpected event payload: %+v", event)
	}
}
