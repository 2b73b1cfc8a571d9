package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shaiso/Sentinel/internal/domain"
	"github.com/shaiso/Sentinel/internal/engine"
)

// Classify превращает неудачный запрос в ошибку для Executor.
//
//   - ошибка сети — RetryableError с RetryAfter = base
//   - 5xx — RetryableError с RetryAfter = base*(attempt+1)
//   - прочие не-2xx/3xx — RetryableError с RetryAfter = base
//
// Отмена контекста возвращается как есть.
func Classify(resp *Response, err error, attempt engine.Attempt, base time.Duration) error {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return &engine.RetryableError{
			Message:    fmt.Sprintf("request failed: %v", err),
			RetryAfter: base,
			Err:        err,
		}
	}

	re := &engine.RetryableError{
		Message:    fmt.Sprintf("HTTP %d", resp.StatusCode),
		RetryAfter: base,
		LatencyMs:  domain.Millis(resp.Latency),
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		re.Message += " " + text
	}
	if resp.StatusCode >= 500 {
		re.RetryAfter = base * time.Duration(attempt.N+1)
	}
	return re
}

// accepted проверяет код ответа: по списку expect или OK (2xx/3xx).
func accepted(resp *Response, expect []int) bool {
	if len(expect) == 0 {
		return resp.OK
	}
	for _, code := range expect {
		if resp.StatusCode == code {
			return true
		}
	}
	return false
}
