package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Sentinel/internal/domain"
)

// DefaultListLimit — размер страницы ListRuns по умолчанию.
const (
	DefaultListLimit = 20
	MaxListLimit     = 200
)

// RunFilter — параметры ListRuns.
type RunFilter struct {
	// Purpose — пусто для всех.
	Purpose string

	Limit int
}

func (f RunFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return f.Limit
	}
}

// Store — история runs и проверок здоровья.
type Store interface {
	SaveRun(ctx context.Context, result *domain.WorkflowRunResult) error
	GetRun(ctx context.Context, runID string) (*domain.WorkflowRunResult, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*domain.WorkflowRunResult, error)

	SaveHealth(ctx context.Context, result *domain.HealthCheckResult) error
	LatestHealth(ctx context.Context) (*domain.HealthCheckResult, error)
}

// PostgresStore — Store поверх PostgreSQL.
type PostgresStore struct {
	*RunRepo
	*HealthRepo
}

// NewPostgresStore создаёт PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		RunRepo:    NewRunRepo(pool),
		HealthRepo: NewHealthRepo(pool),
	}
}
