package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// Watch reloads the file at path whenever it changes and passes each valid
// config to onChange. Invalid or unreadable configs are logged and skipped,
// so the last good config stays in effect. The parent directory is watched,
// because editors replace files by rename. Watching stops when ctx is done.
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func(*Config)) error {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	go func() {
		defer fsw.Close()

		var debounce *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return

			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if debounce == nil {
					debounce = time.NewTimer(watchDebounce)
				} else {
					debounce.Reset(watchDebounce)
				}
				fire = debounce.C

			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				logger.Error("config watcher error", "error", err)

			case <-fire:
				fire = nil
				cfg, err := LoadFromFile(abs)
				if err == nil {
					err = cfg.Validate()
				}
				if err != nil {
					logger.Warn("config reload rejected, keeping previous", "path", abs, "error", err)
					continue
				}
				logger.Info("config reloaded", "path", abs)
				onChange(cfg)
			}
		}
	}()

	return nil
}
