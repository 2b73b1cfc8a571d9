// Package probetest содержит заглушку Fetcher для тестов.
package probetest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shaiso/Sentinel/internal/probe"
)

// ErrUnknownURL — для URL не задан ответ.
var ErrUnknownURL = errors.New("probetest: no response configured")

// Reply — заготовленный ответ.
type Reply struct {
	Status  int
	Latency time.Duration
	Body    string
	Err     error
}

// StubFetcher отвечает заготовленными ответами по URL.
type StubFetcher struct {
	mu       sync.Mutex
	replies  map[string]Reply
	calls    map[string]int
	requests []probe.Request
}

// NewStubFetcher создаёт пустую заглушку.
func NewStubFetcher() *StubFetcher {
	return &StubFetcher{
		replies: make(map[string]Reply),
		calls:   make(map[string]int),
	}
}

// Set задаёт ответ для URL.
func (s *StubFetcher) Set(url string, r Reply) *StubFetcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[url] = r
	return s
}

// Fetch возвращает заготовленный ответ.
func (s *StubFetcher) Fetch(ctx context.Context, req probe.Request) (*probe.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.calls[req.URL]++
	s.requests = append(s.requests, req)
	r, ok := s.replies[req.URL]
	s.mu.Unlock()

	if !ok {
		return nil, ErrUnknownURL
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return &probe.Response{
		OK:         r.Status >= 200 && r.Status < 400,
		StatusCode: r.Status,
		Body:       []byte(r.Body),
		Latency:    r.Latency,
	}, nil
}

// Calls возвращает количество запросов к URL.
func (s *StubFetcher) Calls(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[url]
}

// Requests возвращает все полученные запросы.
func (s *StubFetcher) Requests() []probe.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]probe.Request, len(s.requests))
	copy(out, s.requests)
	return out
}
