package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Sentinel/internal/domain"
)

// HealthRepo — история проверок здоровья.
type HealthRepo struct {
	pool *pgxpool.Pool
}

// NewHealthRepo создаёт HealthRepo.
func NewHealthRepo(pool *pgxpool.Pool) *HealthRepo {
	return &HealthRepo{pool: pool}
}

// SaveHealth сохраняет результат проверки.
func (r *HealthRepo) SaveHealth(ctx context.Context, result *domain.HealthCheckResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal health check: %w", err)
	}

	query := `
		INSERT INTO health_checks (check_id, checked_at, overall, failed, payload)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = r.pool.Exec(ctx, query,
		result.CheckID,
		result.Timestamp,
		result.Overall,
		result.FailedCount(),
		payload,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("health check %s: %w", result.CheckID, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("insert health check: %w", err)
	}
	return nil
}

// LatestHealth возвращает последнюю проверку.
func (r *HealthRepo) LatestHealth(ctx context.Context) (*domain.HealthCheckResult, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `SELECT payload FROM health_checks ORDER BY checked_at DESC LIMIT 1`).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest health check: %w", err)
	}
	return decode[domain.HealthCheckResult](payload)
}
