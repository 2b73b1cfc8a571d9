package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shaiso/Sentinel/internal/engine/enginetest"
)

func TestWithDeadline_TimesOut(t *testing.T) {
	clock := enginetest.NewFakeClock(testStart)
	loserCancelled := make(chan struct{})

	// Фаза длится 10 единиц времени, дедлайн — 1.
	phase := func(ctx context.Context) (string, error) {
		select {
		case <-clock.After(10 * time.Minute):
			return "completed", nil
		case <-ctx.Done():
			close(loserCancelled)
			return "", ctx.Err()
		}
	}

	type res struct {
		out Outcome[string]
		err error
	}
	done := make(chan res, 1)
	go func() {
		out, err := WithDeadline(context.Background(), clock, time.Minute, phase)
		done <- res{out, err}
	}()

	clock.BlockUntil(2)
	clock.Advance(time.Minute)

	r := <-done
	if r.err != nil {
		t.Fatalf("unexpected error: %v", r.err)
	}
	if !r.out.TimedOut {
		t.Fatal("expected timeout outcome")
	}
	if r.out.Value != "" {
		t.Errorf("timed out outcome must not carry a value, got %q", r.out.Value)
	}

	select {
	case <-loserCancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("losing branch was not cancelled")
	}
}

func TestWithDeadline_CompletesFirst(t *testing.T) {
	clock := enginetest.NewFakeClock(testStart)

	out, err := WithDeadline(context.Background(), clock, time.Minute, func(context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.TimedOut || out.Value != 42 {
		t.Errorf("expected completed outcome 42, got %+v", out)
	}
}

func TestWithDeadline_PropagatesError(t *testing.T) {
	clock := enginetest.NewFakeClock(testStart)
	want := Fatal("boom")

	_, err := WithDeadline(context.Background(), clock, time.Minute, func(context.Context) (int, error) {
		return 0, want
	})
	if !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}
}

func TestWithDeadline_NoDeadline(t *testing.T) {
	clock := enginetest.NewFakeClock(testStart)

	out, err := WithDeadline(context.Background(), clock, 0, func(context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil || out.Value != "ok" || out.TimedOut {
		t.Errorf("unexpected outcome %+v, err %v", out, err)
	}
	if clock.Waiters() != 0 {
		t.Errorf("no timer expected, got %d", clock.Waiters())
	}
}
