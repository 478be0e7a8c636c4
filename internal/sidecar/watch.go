package sidecar

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/koala73/worldmonitor-desktop/internal/logging"
)

// watchDebounce coalesces the burst of events editors emit per save.
const watchDebounce = 500 * time.Millisecond

// WatchScript watches the sidecar entry script and restarts the sidecar
// when it changes. Dev-mode convenience; returns once ctx is done.
func (m *Manager) WatchScript(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	script := m.cfg.Paths.Script()
	// Watch the directory: editors replace files on save, which drops
	// watches on the file itself.
	if err := watcher.Add(filepath.Dir(script)); err != nil {
		return err
	}
	logging.Info("watching sidecar script for changes", "script", script)

	var timer *time.Timer
	restartCh := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(script) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case restartCh <- struct{}{}:
				default:
				}
			})

		case <-restartCh:
			logging.Info("sidecar script changed, restarting")
			if err := m.Restart(ctx); err != nil {
				logging.Error("restart after script change failed", "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn("sidecar script watcher error", "error", err)
		}
	}
}
