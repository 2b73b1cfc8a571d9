package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxFailures = 5
	defaultOpenTimeout = time.Minute
)

// WebhookConfig — конфигурация Webhook.
type WebhookConfig struct {
	// URL — адрес для POST (обязателен).
	URL string

	// Headers — дополнительные заголовки запроса.
	Headers map[string]string

	// Timeout — таймаут запроса (default: 10s).
	Timeout time.Duration

	// Name — имя circuit breaker (default: URL).
	Name string

	// MaxFailures — подряд неудач до открытия breaker (default: 5).
	MaxFailures uint32

	// OpenTimeout — сколько breaker остаётся открытым (default: 1m).
	OpenTimeout time.Duration

	// Client — HTTP-клиент (default: http.Client с Timeout).
	Client *http.Client
}

// Webhook отправляет JSON POST через circuit breaker.
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewWebhook создаёт Webhook.
func NewWebhook(cfg WebhookConfig) (*Webhook, error) {
	if cfg.URL == "" {
		return nil, ErrNoURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultMaxFailures
	}

	openTimeout := cfg.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = defaultOpenTimeout
	}

	name := cfg.Name
	if name == "" {
		name = cfg.URL
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// 4xx — ошибка запроса, а не недоступность получателя.
		IsSuccessful: func(err error) bool {
			var se *StatusError
			return err == nil || (errors.As(err, &se) && se.Permanent())
		},
	})

	return &Webhook{
		url:     cfg.URL,
		headers: cfg.Headers,
		client:  client,
		breaker: breaker,
	}, nil
}

// URL возвращает адрес webhook.
func (w *Webhook) URL() string {
	return w.url
}

// State возвращает состояние circuit breaker.
func (w *Webhook) State() string {
	return w.breaker.State().String()
}

// Post отправляет payload как JSON. Одна попытка, без повторов.
func (w *Webhook) Post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	_, err = w.breaker.Execute(func() (any, error) {
		return nil, w.doRequest(ctx, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s", ErrCircuitOpen, w.url)
	}
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}

// doRequest выполняет один POST и возвращает nil для 2xx.
func (w *Webhook) doRequest(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Дочитываем тело для переиспользования соединения
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}
