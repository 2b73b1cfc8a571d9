package alert

import (
	"context"
	"sync"
	"time"

	"github.com/shaiso/Sentinel/internal/domain"
)

// Источники алертов.
const (
	SourceMonitor      = "monitor"
	SourceOptimization = "optimization"
)

// Batch — все алерты одной проверки или одного run.
type Batch struct {
	Source    string               `json:"source"`
	RunID     string               `json:"runId,omitempty"`
	Overall   domain.OverallStatus `json:"overall,omitempty"`
	Alerts    []string             `json:"alerts"`
	Timestamp time.Time            `json:"timestamp"`
}

// Empty сообщает, что алертов нет.
func (b Batch) Empty() bool {
	return len(b.Alerts) == 0
}

// Sink — получатель пачек алертов.
type Sink interface {
	Name() string
	Send(ctx context.Context, b Batch) error
}

// Collector накапливает алерты в порядке добавления. Потокобезопасен.
type Collector struct {
	mu     sync.Mutex
	alerts []string
}

// Add добавляет алерт.
func (c *Collector) Add(alert string) {
	c.mu.Lock()
	c.alerts = append(c.alerts, alert)
	c.mu.Unlock()
}

// Alerts возвращает копию накопленных алертов.
func (c *Collector) Alerts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.alerts...)
}

// Len — количество алертов.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.alerts)
}
