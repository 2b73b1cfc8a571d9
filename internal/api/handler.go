package api

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shaiso/Sentinel/internal/domain"
	"github.com/shaiso/Sentinel/internal/repo"
	"github.com/shaiso/Sentinel/internal/telemetry"
)

// HealthService — проверки здоровья сайта.
type HealthService interface {
	Check(ctx context.Context) (*domain.HealthCheckResult, error)
	Quick(ctx context.Context) domain.QuickStatusResult
	Latest() *domain.HealthCheckResult
}

// OptimizationService — run оптимизации.
type OptimizationService interface {
	Run(ctx context.Context) (*domain.WorkflowRunResult, error)
}

// Handler — обработчик API с зависимостями.
type Handler struct {
	health    HealthService
	optimizer OptimizationService
	store     repo.Store
	metrics   *telemetry.Metrics
	logger    *slog.Logger

	// Одновременно выполняется не больше одной операции каждого вида.
	checkMu    sync.Mutex
	optimizeMu sync.Mutex
}

// Config — конфигурация Handler.
type Config struct {
	Health    HealthService
	Optimizer OptimizationService
	Store     repo.Store
	Metrics   *telemetry.Metrics
	Logger    *slog.Logger
}

// NewHandler создаёт Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		health:    cfg.Health,
		optimizer: cfg.Optimizer,
		store:     cfg.Store,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}
