// sentinel-monitor — демон мониторинга сайта: периодические проверки
// здоровья, run оптимизации, доставка алертов и HTTP API.
//
// Конфигурация: файл из SENTINEL_CONFIG (default: sentinel.yaml),
// переменные окружения DB_URL, AMQP_URL, REDIS_URL, HTTP_ADDR,
// LOG_LEVEL и LOG_FORMAT переопределяют значения из файла.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaiso/Sentinel/internal/config"
	"github.com/shaiso/Sentinel/internal/telemetry"
)

const defaultConfigPath = "sentinel.yaml"

func main() {
	path := os.Getenv("SENTINEL_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}

	// До чтения конфигурации логгер настраивается только из окружения.
	logger := telemetry.SetupLogger("", "")

	cfg, err := config.Load(path)
	if err != nil {
		logger.Error("failed to load config", "path", path, "error", err)
		os.Exit(1)
	}

	logger = telemetry.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("starting sentinel-monitor", "config", path)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := newDaemon(ctx, cfg, path, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer d.close()

	if err := d.run(ctx); err != nil {
		logger.Error("daemon stopped with error", "error", err)
		d.close()
		os.Exit(1)
	}

	logger.Info("stopped")
}
