// Package enginetest содержит вспомогательные типы для тестов движка.
package enginetest

import (
	"context"
	"sync"
	"time"
)

// FakeClock — управляемые часы для тестов.
//
// Sleep сразу сдвигает виртуальное время и запоминает длительность.
// Каналы из After срабатывают, когда Advance (или Sleep) переводит
// время за их момент.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	sleeps  []time.Duration
	waiters []waiter
}

type waiter struct {
	at time.Time
	ch chan time.Time
}

// NewFakeClock создаёт часы, начинающиеся с start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now возвращает виртуальное время.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep записывает d и сдвигает время без реального ожидания.
func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()

	c.Advance(d)
	return nil
}

// After возвращает канал, который сработает через d виртуального времени.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.waiters = append(c.waiters, waiter{at: c.now.Add(d), ch: ch})
	return ch
}

// Advance сдвигает время на d и будит наступившие таймеры.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)

	pending := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.at.After(c.now) {
			w.ch <- c.now
			continue
		}
		pending = append(pending, w)
	}
	c.waiters = pending
}

// Sleeps возвращает все запрошенные длительности Sleep.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

// Waiters возвращает количество ещё не сработавших таймеров.
func (c *FakeClock) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// BlockUntil ждёт, пока не появится хотя бы n таймеров.
func (c *FakeClock) BlockUntil(n int) {
	for c.Waiters() < n {
		time.Sleep(time.Millisecond)
	}
}
