package alert

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"

	"github.com/shaiso/Sentinel/internal/domain"
	"github.com/shaiso/Sentinel/internal/mq"
	"github.com/shaiso/Sentinel/internal/notify"
	"github.com/shaiso/Sentinel/internal/telemetry"
)

var testBatch = Batch{
	Source:    SourceMonitor,
	RunID:     "chk_1",
	Overall:   domain.OverallUnhealthy,
	Alerts:    []string{"/services (https://example.test/services) failed: HTTP 503 Service Unavailable"},
	Timestamp: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingSink struct {
	name string
	err  error

	mu      sync.Mutex
	batches []Batch
	ctxErr  error
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Send(ctx context.Context, b Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, b)
	s.ctxErr = ctx.Err()
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func TestDispatcher_AllSinks(t *testing.T) {
	ok := &recordingSink{name: "ok"}
	broken := &recordingSink{name: "broken", err: errors.New("down")}

	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	d := NewDispatcher(DispatcherConfig{Sinks: []Sink{ok, broken}, Metrics: metrics, Logger: discardLogger()})

	if got := d.Dispatch(context.Background(), testBatch); got != 1 {
		t.Errorf("expected 1 delivered, got %d", got)
	}
	if ok.count() != 1 || broken.count() != 1 {
		t.Errorf("every sink must receive the batch once: ok=%d broken=%d", ok.count(), broken.count())
	}

	got, err := testutil.GatherAndCount(reg, "sentinel_alert_batches_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got != 2 {
		t.Errorf("expected 2 delivery series, got %d", got)
	}
}

func TestDispatcher_EmptyBatch(t *testing.T) {
	sink := &recordingSink{name: "s"}
	d := NewDispatcher(DispatcherConfig{Sinks: []Sink{sink}, Logger: discardLogger()})

	d.Dispatch(context.Background(), Batch{Source: SourceMonitor})
	if sink.count() != 0 {
		t.Error("empty batch must not be sent")
	}
}

func TestDispatcher_IgnoresCallerCancel(t *testing.T) {
	sink := &recordingSink{name: "s"}
	d := NewDispatcher(DispatcherConfig{Sinks: []Sink{sink}, Logger: discardLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := d.Dispatch(ctx, testBatch); got != 1 {
		t.Fatalf("expected delivery after caller cancel, got %d", got)
	}
	if sink.ctxErr != nil {
		t.Errorf("sink context must be live, got %v", sink.ctxErr)
	}
}

func TestDispatcher_Nil(t *testing.T) {
	var d *Dispatcher
	if got := d.Dispatch(context.Background(), testBatch); got != 0 {
		t.Errorf("nil dispatcher must deliver nothing, got %d", got)
	}
}

func TestCollector(t *testing.T) {
	var c Collector
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Add("x")
		}()
	}
	wg.Wait()

	if c.Len() != 10 {
		t.Errorf("expected 10 alerts, got %d", c.Len())
	}
	got := c.Alerts()
	got[0] = "mutated"
	if c.Alerts()[0] != "x" {
		t.Error("Alerts must return a copy")
	}
}

func TestRedisSink(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	sub := client.Subscribe(context.Background(), DefaultRedisChannel)
	defer sub.Close()
	if _, err := sub.Receive(context.Background()); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	sink := NewRedisSink(client, "")
	if err := sink.Send(context.Background(), testBatch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var got Batch
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Source != SourceMonitor || len(got.Alerts) != 1 {
			t.Errorf("unexpected batch: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message published")
	}
}

func TestRedisSink_Unavailable(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr(), MaxRetries: -1})
	defer client.Close()
	srv.Close()

	if err := NewRedisSink(client, "alerts").Send(context.Background(), testBatch); err == nil {
		t.Error("expected error when redis is down")
	}
}

type fakeEvents struct {
	key     mq.RoutingKey
	msgType mq.MessageType
	payload any
}

func (f *fakeEvents) PublishEvent(_ context.Context, key mq.RoutingKey, msgType mq.MessageType, payload any) error {
	f.key, f.msgType, f.payload = key, msgType, payload
	return nil
}

func TestAMQPSink(t *testing.T) {
	pub := &fakeEvents{}
	if err := NewAMQPSink(pub).Send(context.Background(), testBatch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pub.key != "alert.monitor" || pub.msgType != mq.MessageTypeAlertBatch {
		t.Errorf("unexpected routing %s/%s", pub.key, pub.msgType)
	}
	if b, ok := pub.payload.(Batch); !ok || b.RunID != testBatch.RunID {
		t.Errorf("unexpected payload %#v", pub.payload)
	}
}

func TestWebhookSink(t *testing.T) {
	var calls atomic.Int32
	var got Batch
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer server.Close()

	wh, err := notify.NewWebhook(notify.WebhookConfig{URL: server.URL})
	if err != nil {
		t.Fatal(err)
	}

	if err := NewWebhookSink(wh).Send(context.Background(), testBatch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 || got.Overall != domain.OverallUnhealthy {
		t.Errorf("unexpected delivery: calls=%d batch=%+v", calls.Load(), got)
	}
}

func TestLogSink(t *testing.T) {
	if err := NewLogSink(discardLogger()).Send(context.Background(), testBatch); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
