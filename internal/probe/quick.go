package probe

import (
	"context"
	"time"

	"github.com/shaiso/Sentinel/internal/domain"
	"github.com/shaiso/Sentinel/internal/engine"
)

const (
	// DefaultQuickSlowAfter — порог degraded для быстрого статуса.
	DefaultQuickSlowAfter = 2 * time.Second

	defaultQuickTimeout = 10 * time.Second
)

// Quick выполняет одну попытку запроса к странице и возвращает статус:
//
//	operational — 2xx и быстрее slowAfter
//	degraded    — 2xx, но медленнее
//	outage      — нет ответа или не 2xx
func Quick(ctx context.Context, f Fetcher, clock engine.Clock, url string, slowAfter time.Duration) domain.QuickStatusResult {
	if clock == nil {
		clock = engine.SystemClock{}
	}
	if slowAfter <= 0 {
		slowAfter = DefaultQuickSlowAfter
	}

	start := clock.Now()
	resp, err := f.Fetch(ctx, Request{URL: url, Method: "GET", Timeout: defaultQuickTimeout})

	result := domain.QuickStatusResult{CheckedAt: clock.Now()}
	if err != nil {
		result.Status = domain.QuickOutage
		result.LatencyMs = clock.Now().Sub(start).Milliseconds()
		return result
	}

	result.StatusCode = resp.StatusCode
	result.LatencyMs = resp.Latency.Milliseconds()

	switch {
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		result.Status = domain.QuickOutage
	case resp.Latency < slowAfter:
		result.Status = domain.QuickOperational
	default:
		result.Status = domain.QuickDegraded
	}
	return result
}
