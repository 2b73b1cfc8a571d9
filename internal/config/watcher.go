package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher перечитывает файл конфигурации при изменении и передаёт
// новую конфигурацию в OnChange. Невалидный файл логируется, последняя
// рабочая конфигурация остаётся в силе.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(*Config)
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
}

// WatcherConfig — конфигурация Watcher.
type WatcherConfig struct {
	Path     string
	OnChange func(*Config)

	// Debounce — пауза после последнего события (default: 200ms).
	Debounce time.Duration

	Logger *slog.Logger
}

// NewWatcher создаёт Watcher. Следит за каталогом файла, чтобы
// переживать замену файла через rename.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	path, err := filepath.Abs(cfg.Path)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("resolve %s: %w", cfg.Path, err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		path:     path,
		debounce: debounce,
		onChange: cfg.OnChange,
		watcher:  fw,
		logger:   logger.With("component", "config-watcher", "path", path),
	}, nil
}

// Run обрабатывает события до отмены ctx и закрывает fsnotify.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-pending:
			pending = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Error("config reload failed, keeping previous", "error", err)
		return
	}
	w.logger.Info("config reloaded")
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
