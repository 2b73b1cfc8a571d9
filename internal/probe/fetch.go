package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shaiso/Sentinel/internal/engine"
)

const (
	defaultFetchTimeout = 30 * time.Second
	defaultMaxBody      = 1 << 20
	defaultUserAgent    = "sentinel-monitor/1.0"
)

// Request — параметры одного запроса.
type Request struct {
	URL string

	// Method — GET (по умолчанию), HEAD или OPTIONS.
	Method string

	// Timeout — таймаут запроса (default: 30s).
	Timeout time.Duration

	Headers map[string]string
}

// Response — результат запроса.
type Response struct {
	// OK — код ответа 2xx или 3xx.
	OK bool

	StatusCode int

	// Body — тело ответа (не больше MaxBody байт).
	Body []byte

	// Latency — время от отправки до чтения тела.
	Latency time.Duration
}

// Fetcher — коллаборатор, выполняющий HTTP-запросы.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}

// HTTPFetcherConfig — конфигурация HTTPFetcher.
type HTTPFetcherConfig struct {
	// Client — HTTP-клиент (default: http.Client без таймаута,
	// таймаут задаётся на запрос через контекст).
	Client *http.Client

	// Clock — для измерения задержки (default: SystemClock).
	Clock engine.Clock

	// MaxBody — максимум байт тела ответа (default: 1 MiB).
	MaxBody int64

	// UserAgent (default: sentinel-monitor/1.0).
	UserAgent string

	// Timeout — таймаут запроса без собственного Request.Timeout (default: 30s).
	Timeout time.Duration
}

// HTTPFetcher — Fetcher на основе net/http.
type HTTPFetcher struct {
	client    *http.Client
	clock     engine.Clock
	maxBody   int64
	userAgent string
	timeout   time.Duration
}

// NewHTTPFetcher создаёт HTTPFetcher.
func NewHTTPFetcher(cfg HTTPFetcherConfig) *HTTPFetcher {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}

	clock := cfg.Clock
	if clock == nil {
		clock = engine.SystemClock{}
	}

	maxBody := cfg.MaxBody
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	return &HTTPFetcher{
		client:    client,
		clock:     clock,
		maxBody:   maxBody,
		userAgent: userAgent,
		timeout:   timeout,
	}
}

// Fetch выполняет запрос.
//
// Ошибка возвращается только если ответ не получен; любой HTTP-код
// (включая 5xx) — это Response.
func (f *HTTPFetcher) Fetch(ctx context.Context, r Request) (*Response, error) {
	if r.URL == "" {
		return nil, ErrEmptyURL
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = f.timeout
	}

	// Таймаут
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, r.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	start := f.clock.Now()

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrFetch, err)
	}

	return &Response{
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 400,
		StatusCode: resp.StatusCode,
		Body:       body,
		Latency:    f.clock.Now().Sub(start),
	}, nil
}
