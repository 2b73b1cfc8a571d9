package orchestrator

import (
	"sync"
	"time"

	"github.com/shaiso/Sentinel/internal/domain"
)

// RunContext — общие данные одного run, доступные фазам.
//
// Позволяет поздней фазе прочитать выход ранней (например, URL sitemap
// из seo-audit для фазы indexing) и собрать алерты со всех фаз.
// Безопасен для конкурентного использования.
type RunContext struct {
	runID   string
	purpose string

	// outputs — выходы фаз (phase → key → value).
	outputs map[string]map[string]any

	// statuses — статусы завершённых фаз.
	statuses map[string]domain.PhaseStatus

	alerts []string

	mu sync.RWMutex
}

// NewRunContext создаёт RunContext.
func NewRunContext(runID, purpose string) *RunContext {
	return &RunContext{
		runID:    runID,
		purpose:  purpose,
		outputs:  make(map[string]map[string]any),
		statuses: make(map[string]domain.PhaseStatus),
	}
}

// RunID возвращает ID run.
func (c *RunContext) RunID() string {
	return c.runID
}

// Purpose возвращает назначение run.
func (c *RunContext) Purpose() string {
	return c.purpose
}

// SetOutput сохраняет выходное значение фазы.
func (c *RunContext) SetOutput(phase, key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out, ok := c.outputs[phase]
	if !ok {
		out = make(map[string]any)
		c.outputs[phase] = out
	}
	out[key] = value
}

// Output возвращает выходное значение фазы.
func (c *RunContext) Output(phase, key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.outputs[phase][key]
	return v, ok
}

// OutputString возвращает выходное значение фазы как строку.
func (c *RunContext) OutputString(phase, key string) string {
	v, _ := c.Output(phase, key)
	s, _ := v.(string)
	return s
}

// PhaseStatus возвращает статус завершённой фазы.
func (c *RunContext) PhaseStatus(phase string) (domain.PhaseStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.statuses[phase]
	return s, ok
}

// AddAlert добавляет алерт в пачку run.
func (c *RunContext) AddAlert(alert string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.alerts = append(c.alerts, alert)
}

// Alerts возвращает копию собранных алертов.
func (c *RunContext) Alerts() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, len(c.alerts))
	copy(out, c.alerts)
	return out
}

func (c *RunContext) setStatus(phase string, status domain.PhaseStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.statuses[phase] = status
}

// runState — накапливаемый результат run.
//
// Фазы дописываются горутиной run, а при таймауте snapshot читается
// из вызывающей горутины, поэтому доступ под мьютексом.
type runState struct {
	result domain.WorkflowRunResult
	mu     sync.Mutex
}

func newRunState(runID, purpose string, startedAt time.Time) *runState {
	return &runState{
		result: domain.WorkflowRunResult{
			RunID:     runID,
			Purpose:   purpose,
			StartedAt: startedAt,
			Phases:    make([]domain.PhaseResult, 0),
		},
	}
}

// record дописывает завершённую фазу.
func (s *runState) record(p domain.PhaseResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.result.Phases = append(s.result.Phases, p)
}

// snapshot возвращает копию текущего результата.
func (s *runState) snapshot() *domain.WorkflowRunResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.result
	out.Phases = make([]domain.PhaseResult, len(s.result.Phases))
	copy(out.Phases, s.result.Phases)
	return &out
}

// stats возвращает счётчики по уже завершённым фазам.
func (s *runState) stats() domain.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum domain.Summary
	for _, p := range s.result.Phases {
		sum.Add(p)
	}
	return sum
}
