package repo

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/shaiso/Sentinel/internal/domain"
)

// MemoryStore — Store в памяти процесса для запуска без PostgreSQL.
//
// Хранит не больше capacity последних runs и проверок; старые
// записи вытесняются.
type MemoryStore struct {
	mu       sync.RWMutex
	capacity int
	runs     []*domain.WorkflowRunResult
	runIndex map[string]*domain.WorkflowRunResult
	health   []*domain.HealthCheckResult
}

// NewMemoryStore создаёт MemoryStore. capacity <= 0 — DefaultListLimit*10.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultListLimit * 10
	}
	return &MemoryStore{
		capacity: capacity,
		runIndex: make(map[string]*domain.WorkflowRunResult),
	}
}

// SaveRun сохраняет копию результата.
func (s *MemoryStore) SaveRun(_ context.Context, result *domain.WorkflowRunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runIndex[result.RunID]; ok {
		return fmt.Errorf("run %s: %w", result.RunID, ErrAlreadyExists)
	}

	stored := cloneRun(result)
	s.runs = append(s.runs, stored)
	s.runIndex[stored.RunID] = stored

	if len(s.runs) > s.capacity {
		evicted := s.runs[0]
		s.runs = s.runs[1:]
		delete(s.runIndex, evicted.RunID)
	}
	return nil
}

// GetRun возвращает копию run.
func (s *MemoryStore) GetRun(_ context.Context, runID string) (*domain.WorkflowRunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runIndex[runID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRun(run), nil
}

// ListRuns возвращает последние runs, новые первыми.
func (s *MemoryStore) ListRuns(_ context.Context, filter RunFilter) ([]*domain.WorkflowRunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := filter.limit()
	out := make([]*domain.WorkflowRunResult, 0, min(limit, len(s.runs)))
	for i := len(s.runs) - 1; i >= 0 && len(out) < limit; i-- {
		if filter.Purpose != "" && s.runs[i].Purpose != filter.Purpose {
			continue
		}
		out = append(out, cloneRun(s.runs[i]))
	}
	return out, nil
}

// SaveHealth сохраняет проверку.
func (s *MemoryStore) SaveHealth(_ context.Context, result *domain.HealthCheckResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.health = append(s.health, cloneHealth(result))
	if len(s.health) > s.capacity {
		s.health = s.health[1:]
	}
	return nil
}

// LatestHealth возвращает последнюю проверку.
func (s *MemoryStore) LatestHealth(_ context.Context) (*domain.HealthCheckResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.health) == 0 {
		return nil, ErrNotFound
	}
	return cloneHealth(s.health[len(s.health)-1]), nil
}

func cloneRun(r *domain.WorkflowRunResult) *domain.WorkflowRunResult {
	out := *r
	if r.Phases != nil {
		out.Phases = make([]domain.PhaseResult, len(r.Phases))
		for i, p := range r.Phases {
			p.Errors = slices.Clone(p.Errors)
			out.Phases[i] = p
		}
	}
	out.Alerts = slices.Clone(r.Alerts)
	return &out
}

func cloneHealth(h *domain.HealthCheckResult) *domain.HealthCheckResult {
	out := *h
	if h.Checks != nil {
		out.Checks = make([]domain.CheckResult, len(h.Checks))
		for i, c := range h.Checks {
			if c.LatencyMs != nil {
				ms := *c.LatencyMs
				c.LatencyMs = &ms
			}
			out.Checks[i] = c
		}
	}
	out.Alerts = slices.Clone(h.Alerts)
	return &out
}
