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

// RunRepo — история завершённых runs.
type RunRepo struct {
	pool *pgxpool.Pool
}

// NewRunRepo создаёт RunRepo.
func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

// SaveRun сохраняет результат run. Повторное сохранение того же
// run_id возвращает ErrAlreadyExists.
func (r *RunRepo) SaveRun(ctx context.Context, result *domain.WorkflowRunResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	query := `
		INSERT INTO runs (run_id, purpose, outcome, started_at, completed_at, duration_ms, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		result.RunID,
		result.Purpose,
		result.Outcome(),
		result.StartedAt,
		result.CompletedAt,
		result.DurationMs,
		payload,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("run %s: %w", result.RunID, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun возвращает run по ID.
func (r *RunRepo) GetRun(ctx context.Context, runID string) (*domain.WorkflowRunResult, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `SELECT payload FROM runs WHERE run_id = $1`, runID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return decode[domain.WorkflowRunResult](payload)
}

// ListRuns возвращает последние runs, новые первыми.
func (r *RunRepo) ListRuns(ctx context.Context, filter RunFilter) ([]*domain.WorkflowRunResult, error) {
	query := `
		SELECT payload
		FROM runs
		WHERE ($1::text IS NULL OR purpose = $1)
		ORDER BY started_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, nullString(filter.Purpose), filter.limit())
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*domain.WorkflowRunResult, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run, err := decode[domain.WorkflowRunResult](payload)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// decode разбирает JSONB payload.
func decode[T any](payload []byte) (*T, error) {
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &out, nil
}

// nullString возвращает nil для пустой строки (NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
